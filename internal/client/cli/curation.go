package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
)

func (a *App) curate(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: curate <entity-id>")
	}

	public, err := promptMultiline(a.reader, "Public notes", a.out)
	if err != nil {
		return err
	}
	private, err := promptMultiline(a.reader, "Private notes", a.out)
	if err != nil {
		return err
	}
	pairs, err := promptPairs(a.reader, "Concepts", a.out)
	if err != nil {
		return err
	}

	concepts := make([]models.Concept, 0, len(pairs))
	records, err := models.RecordsFromStrings(pairs)
	if err != nil {
		return err
	}
	for _, r := range records {
		concepts = append(concepts, models.Concept{Category: r.Category, Value: r.Value})
	}

	c := &models.Curation{
		EntityID: args[0],
		Concepts: concepts,
		Notes:    models.Notes{Public: public, Private: private},
	}
	if err := a.store.CreateCuration(ctx, a.sess, c); err != nil {
		return err
	}
	a.printf("curation %s recorded, queued for sync\n", c.CurationID)
	return nil
}

func (a *App) listCurations(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: curations <entity-id>")
	}
	curations, err := a.store.ListCurationsByEntity(ctx, args[0], "")
	if err != nil {
		return err
	}
	if len(curations) == 0 {
		a.printf("no curations for this venue\n")
		return nil
	}
	for _, c := range curations {
		a.printf("%s  v%d  [%s]  by %s\n", c.CurationID, c.Version, c.SyncStatus, c.CuratorName)
		if c.Notes.Public != "" {
			a.printf("  %s\n", c.Notes.Public)
		}
		for _, concept := range c.Concepts {
			a.printf("  #%s=%s", concept.Category, concept.Value)
		}
		if len(c.Concepts) > 0 {
			a.printf("\n")
		}
	}
	return nil
}
