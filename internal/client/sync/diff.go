package sync

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/google/go-cmp/cmp"
)

// Bookkeeping fields are excluded from conflict diffs: they are expected to
// differ between a local draft and the server copy and carry no user intent.
var diffSkipFields = map[string]struct{}{
	"version":     {},
	"created_at":  {},
	"updated_at":  {},
	"sync_status": {},
	"server_ref":  {},
	"id":          {},
}

// fieldDiff compares two local-shape JSON documents field by field and
// returns the diverging fields in name order. Values are compared
// structurally, so key order and whitespace never produce a false diff.
func fieldDiff(local, server json.RawMessage) ([]models.FieldChange, error) {
	var lm, sm map[string]any
	if err := json.Unmarshal(local, &lm); err != nil {
		return nil, fmt.Errorf("bad local payload: %w", err)
	}
	if err := json.Unmarshal(server, &sm); err != nil {
		return nil, fmt.Errorf("bad server payload: %w", err)
	}

	keys := map[string]struct{}{}
	for k := range lm {
		keys[k] = struct{}{}
	}
	for k := range sm {
		keys[k] = struct{}{}
	}

	var fields []string
	for k := range keys {
		if _, skip := diffSkipFields[k]; skip {
			continue
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var diff []models.FieldChange
	for _, k := range fields {
		lv, lok := lm[k]
		sv, sok := sm[k]
		if lok && sok && cmp.Equal(lv, sv) {
			continue
		}
		if !lok && !sok {
			continue
		}
		lj, err := json.Marshal(lv)
		if err != nil {
			return nil, err
		}
		sj, err := json.Marshal(sv)
		if err != nil {
			return nil, err
		}
		diff = append(diff, models.FieldChange{Field: k, Local: lj, Server: sj})
	}
	return diff, nil
}
