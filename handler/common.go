package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillsign/quillsign/backend/middleware"
	"github.com/quillsign/quillsign/backend/model"
	"github.com/quillsign/quillsign/backend/pkg/logger"
	"github.com/quillsign/quillsign/backend/service"
)

// ownedContract loads the contract from the :id route param and verifies it
// belongs to the acting operator. On failure it writes a 404 and returns
// nil; ownership failures are indistinguishable from missing records. The
// contract id is recorded in the request context for the access log.
func ownedContract(c *gin.Context, store service.Store) *model.Contract {
	username := middleware.GetUsername(c)
	id := c.Param("id")

	contract, err := store.GetContract(c.Request.Context(), id)
	if err != nil || contract.OwnerUser != username {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil
	}

	ctx := context.WithValue(c.Request.Context(), logger.ContractKey, contract.ID)
	c.Request = c.Request.WithContext(ctx)
	return contract
}
