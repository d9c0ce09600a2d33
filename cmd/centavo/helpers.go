package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/currency"
	"github.com/centavo-app/centavo/internal/exchangerate"
	"github.com/centavo-app/centavo/internal/ledger"
	"github.com/centavo-app/centavo/internal/storage"
	"github.com/centavo-app/centavo/internal/supabase"
	"github.com/spf13/viper"
)

// expandPath resolves ~ and $VAR references in configured paths.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// services is the composition root: every long-lived object is built
// here and passed by reference to the commands that need it.
type services struct {
	kv       *storage.KVStore
	session  *supabase.Session
	gateway  *supabase.Client
	ledger   *ledger.Store
	currency *currency.Engine
}

func (s *services) close() {
	if s.ledger != nil {
		s.ledger.Close()
	}
	if s.kv != nil {
		_ = s.kv.Close()
	}
}

func initKV(ctx context.Context) (*storage.KVStore, error) {
	dbPath := expandPath(viper.GetString("database.path"))

	kv, err := storage.NewKVStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := kv.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return kv, nil
}

func remoteConfig() (baseURL, anonKey string, err error) {
	baseURL = viper.GetString("supabase.url")
	anonKey = viper.GetString("supabase.anon_key")
	if baseURL == "" || anonKey == "" {
		return "", "", common.NewUserError(
			"remote store not configured; set supabase.url and supabase.anon_key in the config file", nil)
	}
	return baseURL, anonKey, nil
}

// initServices wires the full stack and resumes any persisted session.
func initServices(ctx context.Context) (*services, error) {
	kv, err := initKV(ctx)
	if err != nil {
		return nil, err
	}

	baseURL, anonKey, err := remoteConfig()
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	session := supabase.NewSession(baseURL, anonKey)
	if token, err := kv.Get(ctx, storage.KeySessionToken); err == nil {
		owner, _ := kv.Get(ctx, storage.KeySessionUser)
		session.Resume(string(token), string(owner))
	}

	gateway := supabase.NewClient(baseURL, anonKey, session, session)
	engine := currency.NewEngine(exchangerate.NewClient(viper.GetString("rates.endpoint")), kv)

	return &services{
		kv:       kv,
		session:  session,
		gateway:  gateway,
		ledger:   ledger.NewStore(gateway),
		currency: engine,
	}, nil
}

// requireSession ensures a signed-in user and points the ledger at
// their identity.
func (s *services) requireSession(ctx context.Context) error {
	owner, err := s.session.OwnerID(ctx)
	if err != nil {
		return err
	}
	if owner == "" {
		return common.NewUserError("not signed in; run `centavo login` first", nil)
	}
	s.ledger.SetOwner(owner)
	return nil
}

// forgetSession drops persisted credentials after the remote store
// rejected them.
func (s *services) forgetSession(ctx context.Context) {
	s.session.SignOut()
	_ = s.kv.Delete(ctx, storage.KeySessionToken)
	_ = s.kv.Delete(ctx, storage.KeySessionUser)
}

// describeErr maps gateway failures onto user-facing messages, tearing
// the session down when the credential has expired.
func (s *services) describeErr(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrAuthExpired):
		s.forgetSession(ctx)
		return common.NewUserError("session expired; run `centavo login` again", err)
	case errors.Is(err, common.ErrNotFound):
		return common.NewUserError("that transaction no longer exists", err)
	case common.IsValidation(err):
		return err
	default:
		return common.NewUserError("could not reach the remote store", err)
	}
}
