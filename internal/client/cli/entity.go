package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/placekeeper/internal/client/dedupe"
	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/dmitrijs2005/placekeeper/internal/client/store"
	"github.com/dmitrijs2005/placekeeper/internal/common"
)

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return fmt.Errorf("%w: log in first", common.ErrUnauthorized)
	}
	return nil
}

func (a *App) addEntity(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	name, err := promptLine(a.reader, "Venue name", a.out)
	if err != nil {
		return err
	}
	typ, err := promptLine(a.reader, "Type (restaurant/cafe/bar/shop/landmark)", a.out)
	if err != nil {
		return err
	}
	meta, err := promptPairs(a.reader, "Metadata", a.out)
	if err != nil {
		return err
	}
	records, err := models.RecordsFromStrings(meta)
	if err != nil {
		return err
	}

	data := map[string]any{}
	if lat, lon, ok := a.promptCoordinates(); ok {
		data["lat"], data["lon"] = lat, lon
	}

	e := &models.Entity{
		Type:     models.EntityType(typ),
		Name:     name,
		Status:   models.StatusActive,
		Data:     data,
		Metadata: records,
	}

	if err := a.warnLikelyDuplicates(ctx, e); err != nil {
		return err
	}

	if err := a.store.CreateEntity(ctx, a.sess, e); err != nil {
		return err
	}
	a.printf("added %s (%s), queued for sync\n", e.Name, e.EntityID)
	return nil
}

func (a *App) promptCoordinates() (float64, float64, bool) {
	raw, err := promptLine(a.reader, "Coordinates lat,lon (empty to skip)", a.out)
	if err != nil || raw == "" {
		return 0, 0, false
	}
	var lat, lon float64
	if _, err := fmt.Sscanf(raw, "%f,%f", &lat, &lon); err != nil {
		a.printf("could not parse coordinates, skipping\n")
		return 0, 0, false
	}
	return lat, lon, true
}

// warnLikelyDuplicates scores the new venue against the local catalogue and
// asks for confirmation when something similar already exists.
func (a *App) warnLikelyDuplicates(ctx context.Context, e *models.Entity) error {
	existing, err := a.store.ListEntities(ctx, store.EntityFilter{Limit: common.MaxListLimit})
	if err != nil {
		return err
	}
	matches := dedupe.FindMatches(dedupe.FromEntity(e), existing, dedupe.DefaultThreshold)
	if len(matches) == 0 {
		return nil
	}

	a.printf("similar venues already exist:\n")
	for _, m := range matches {
		a.printf("  %.0f%%  %s (%s)\n", m.Score*100, m.Entity.Name, m.Entity.EntityID)
	}
	answer, err := promptLine(a.reader, "Add anyway? (y/N)", a.out)
	if err != nil {
		return err
	}
	if answer != "y" && answer != "Y" {
		return fmt.Errorf("cancelled")
	}
	return nil
}

func (a *App) listEntities(ctx context.Context, args []string) error {
	f := store.EntityFilter{}
	if len(args) > 0 {
		f.Type = models.EntityType(args[0])
	}
	entities, err := a.store.ListEntities(ctx, f)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		a.printf("no venues yet\n")
		return nil
	}
	for _, e := range entities {
		a.printf("%s  v%s  [%s]  %-10s  %s\n",
			e.EntityID, strconv.FormatInt(e.Version, 10), e.SyncStatus, e.Type, e.Name)
	}
	return nil
}

func (a *App) showEntity(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show <entity-id>")
	}
	e, err := a.store.GetEntity(ctx, args[0])
	if err != nil {
		return err
	}
	a.printf("%s (%s)\n", e.Name, e.Type)
	a.printf("  status: %s   version: %d   sync: %s\n", e.Status, e.Version, e.SyncStatus)
	for _, m := range e.Metadata {
		a.printf("  %s = %s\n", m.Category, m.Value)
	}
	for k, v := range e.Data {
		a.printf("  %s: %v\n", k, v)
	}
	return nil
}

func (a *App) deleteEntity(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <entity-id>")
	}
	if err := a.store.DeleteEntity(ctx, a.sess, args[0]); err != nil {
		return err
	}
	a.printf("deleted locally, removal queued for sync\n")
	return nil
}
