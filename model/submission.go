package model

import "time"

// Submission is one counterparty's completed signing pass. Values are keyed
// by field label, the only correlation key a counterparty sees; resolving
// labels back to field ids happens at export time. Multiple submissions per
// contract are retained.
type Submission struct {
	ID          string            `json:"id"`
	ContractID  string            `json:"contract_id"`
	SignerName  string            `json:"signer_name"`
	SignerEmail string            `json:"signer_email"`
	FieldValues map[string]string `json:"field_values"`
	SignedAt    time.Time         `json:"signed_at"`
}
