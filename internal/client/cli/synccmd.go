package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
)

func (a *App) syncNow(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	rep, err := a.manager.Sync(ctx, a.sess)
	if err != nil {
		return err
	}

	a.printf("pushed %d, pulled %d", rep.Pushed, rep.Pulled)
	if rep.Conflicts > 0 {
		a.printf(", %d conflict(s) need attention", rep.Conflicts)
	}
	if rep.Stuck > 0 {
		a.printf(", %d item(s) stuck", rep.Stuck)
	}
	a.printf("\n")
	if rep.PullErr != nil {
		a.printf("pull incomplete: %v\n", rep.PullErr)
	}
	return nil
}

func (a *App) listConflicts(ctx context.Context) error {
	conflicts, err := a.resolver.ListConflicts(ctx)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		a.printf("no open conflicts\n")
		return nil
	}
	for _, rec := range conflicts {
		a.printf("%s  %s %s  local v%d vs server v%d  fields: %s\n",
			rec.ID, rec.TargetType, rec.TargetID, rec.LocalVersion, rec.ServerVersion,
			strings.Join(rec.ChangedFields(), ", "))
	}
	return nil
}

func (a *App) showConflict(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: conflict <conflict-id>")
	}
	rec, err := a.resolver.GetConflict(ctx, args[0])
	if err != nil {
		return err
	}
	a.printf("%s %s, detected %s\n", rec.TargetType, rec.TargetID, rec.DetectedAt.Format("2006-01-02 15:04:05"))
	a.printf("local v%d vs server v%d\n", rec.LocalVersion, rec.ServerVersion)
	for _, fc := range rec.FieldDiff {
		a.printf("  %-12s local=%s  server=%s\n", fc.Field, fc.Local, fc.Server)
	}
	return nil
}

func (a *App) resolve(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: resolve <conflict-id> <keep_local|keep_server>")
	}

	id := args[0]
	switch models.Resolution(args[1]) {
	case models.ResolutionKeepLocal:
		if err := a.resolver.KeepLocal(ctx, id); err != nil {
			return err
		}
		a.printf("kept local copy, re-push queued\n")
	case models.ResolutionKeepServer:
		if err := a.resolver.KeepServer(ctx, id); err != nil {
			return err
		}
		a.printf("took server copy\n")
	default:
		return fmt.Errorf("unknown resolution %q", args[1])
	}
	return nil
}

func (a *App) status(ctx context.Context) error {
	summary, err := a.store.QueueSummary(ctx)
	if err != nil {
		return err
	}
	wm, err := a.store.Watermark(ctx)
	if err != nil {
		return err
	}

	a.printf("mode: %s\n", a.mode)
	if wm.IsZero() {
		a.printf("never pulled\n")
	} else {
		a.printf("last pull: %s\n", wm.Format("2006-01-02 15:04:05"))
	}
	a.printf("queue: %d pending, %d in flight, %d conflicted, %d stuck, %d done\n",
		summary[models.QueuePending], summary[models.QueueInFlight],
		summary[models.QueueConflict], summary[models.QueueStuck], summary[models.QueueDone])
	return nil
}
