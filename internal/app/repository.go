package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"trivia-night/internal/domain"
)

// GameRepository is the narrow load/save seam between game logic and the store.
// Save overwrites the whole document unconditionally: the last writer wins.
type GameRepository interface {
	Load(ctx context.Context, code string) (domain.Game, error)
	Save(ctx context.Context, game domain.Game) (domain.Game, error)
}

// DocumentRepository stores each game as one shared JSON document under "game:{CODE}".
type DocumentRepository struct {
	store Store
}

func NewDocumentRepository(store Store) *DocumentRepository {
	return &DocumentRepository{store: store}
}

// Load fetches and decodes the game for code. Missing documents yield domain.ErrNotFound.
func (r *DocumentRepository) Load(ctx context.Context, code string) (domain.Game, error) {
	key := domain.GameKey(code)
	rec, ok, err := r.store.Get(ctx, key, true)
	if err != nil {
		return domain.Game{}, backendError("get", key, err)
	}
	if !ok {
		return domain.Game{}, fmt.Errorf("%w: %s", domain.ErrNotFound, domain.NormalizeCode(code))
	}
	return domain.Decode(rec.Value)
}

// Save encodes and writes game, returning exactly what was written. A game that
// would not decode again is rejected with domain.ErrInvalidInput before any write.
func (r *DocumentRepository) Save(ctx context.Context, game domain.Game) (domain.Game, error) {
	if err := domain.Validate(game); err != nil {
		return domain.Game{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	raw, err := domain.Encode(game)
	if err != nil {
		return domain.Game{}, err
	}
	key := domain.GameKey(game.Code)
	if _, err := r.store.Set(ctx, key, raw, true); err != nil {
		return domain.Game{}, backendError("set", key, err)
	}
	return domain.Decode(raw)
}

// Codes lists the codes of every stored game, sorted.
func (r *DocumentRepository) Codes(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, domain.GameKeyPrefix, true)
	if err != nil {
		return nil, backendError("list", domain.GameKeyPrefix, err)
	}
	codes := make([]string, 0, len(keys))
	for _, key := range keys {
		if code, ok := domain.CodeFromKey(key); ok {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// Delete removes the document for code.
func (r *DocumentRepository) Delete(ctx context.Context, code string) error {
	key := domain.GameKey(code)
	if err := r.store.Delete(ctx, key, true); err != nil {
		return backendError("delete", key, err)
	}
	return nil
}

// backendError keeps taxonomy errors from adapters and files everything else under ErrBackend.
func backendError(op, key string, err error) error {
	if isTaxonomy(err) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %w", domain.ErrBackend, op, key, err)
}

func isTaxonomy(err error) bool {
	for _, target := range []error{domain.ErrTooLarge, domain.ErrBackend, domain.ErrNotFound, domain.ErrNotReady} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
