package workspace

import (
	"encoding/json"

	"EstateDesk/internal/models"
	"EstateDesk/internal/table"
)

type decodeFunc func(raw []json.RawMessage) ([]table.Record, int)

func decodeAs[T any, PT interface {
	*T
	models.Entity
}](raw []json.RawMessage) ([]table.Record, int) {
	items, dropped := models.DecodeList[T, PT](raw)
	out := make([]table.Record, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out, dropped
}

var decoders = map[string]decodeFunc{
	"property":          decodeAs[models.Property],
	"masterDevelopment": decodeAs[models.MasterDevelopment],
	"subDevelopment":    decodeAs[models.SubDevelopment],
	"project":           decodeAs[models.Project],
	"customer":          decodeAs[models.Customer],
	"agent":             decodeAs[models.Agent],
	"listing":           decodeAs[models.Listing],
	"contract":          decodeAs[models.Contract],
	"transaction":       decodeAs[models.Transaction],
}

// Supported reports whether pages of domain can be built.
func Supported(domain string) bool {
	_, ok := decoders[domain]
	return ok
}
