package handlers

import (
	"time"

	"github.com/spf13/afero"

	"media-share/internal/access"
	"media-share/internal/cast"
	"media-share/internal/database"
	"media-share/internal/transcoder"
)

// Handlers holds the collaborators of the HTTP layer.
type Handlers struct {
	db        *database.Database
	access    *access.Model
	engine    *transcoder.Engine
	caster    cast.Caster
	fs        afero.Fs
	startTime time.Time
}

// New creates the handler set. fs is used for every listing and download;
// a nil caster disables the cast endpoints.
func New(db *database.Database, model *access.Model, engine *transcoder.Engine, caster cast.Caster, fs afero.Fs) *Handlers {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Handlers{
		db:        db,
		access:    model,
		engine:    engine,
		caster:    cast.OrUnavailable(caster),
		fs:        fs,
		startTime: time.Now(),
	}
}
