package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/cache"
	"github.com/shaiso/Processo/internal/child"
	"github.com/shaiso/Processo/internal/engine"
	"github.com/shaiso/Processo/internal/signature"
	"github.com/shaiso/Processo/internal/storage"
)

// BlobStore — запись байтов вложений.
// Реализуется repo.Store и mem.Store.
type BlobStore interface {
	PutBytes(ctx context.Context, attachmentID uuid.UUID, data []byte) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store        storage.Storage
	blobs        BlobStore
	engine       *engine.Engine
	resolver     *signature.Resolver
	orchestrator *child.Orchestrator
	cache        cache.Cache
	logger       *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store        storage.Storage
	Blobs        BlobStore
	Engine       *engine.Engine
	Resolver     *signature.Resolver
	Orchestrator *child.Orchestrator
	Cache        cache.Cache
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		store:        cfg.Store,
		blobs:        cfg.Blobs,
		engine:       cfg.Engine,
		resolver:     cfg.Resolver,
		orchestrator: cfg.Orchestrator,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
	}
}
