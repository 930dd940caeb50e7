package cli

import (
	"context"

	"github.com/dmitrijs2005/placekeeper/internal/client/api"
	"github.com/dmitrijs2005/placekeeper/internal/client/store"
)

func (a *App) register(ctx context.Context) error {
	login, err := promptLine(a.reader, "Choose a login", a.out)
	if err != nil {
		return err
	}
	name, err := promptLine(a.reader, "Display name", a.out)
	if err != nil {
		return err
	}
	pw, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	res, err := a.remote.Register(ctx, login, name, string(pw))
	if err != nil {
		return err
	}
	return a.openSession(ctx, res)
}

func (a *App) login(ctx context.Context) error {
	login, err := promptLine(a.reader, "Login", a.out)
	if err != nil {
		return err
	}
	pw, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	res, err := a.remote.Login(ctx, login, string(pw))
	if err != nil {
		return err
	}
	return a.openSession(ctx, res)
}

func (a *App) openSession(ctx context.Context, res *api.AuthResult) error {
	a.identity.set(res.Token)
	a.sess = store.Session{CuratorID: res.CuratorID, CuratorName: res.Name}

	// The curator cache feeds read-time name resolution on curations.
	if err := a.store.RememberCurator(ctx, res.CuratorID, res.Name); err != nil {
		return err
	}

	a.printf("logged in as %s\n", res.Name)
	a.startAutoSync(ctx)
	return nil
}
