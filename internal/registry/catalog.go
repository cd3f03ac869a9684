// Package registry answers "which models can be loaded": the backend's own
// listing when it is reachable, otherwise a static placeholder list.
package registry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/common/fsutil"
)

// FallbackNote accompanies the placeholder list.
const FallbackNote = "LM Studio unavailable; showing fallback list."

// FallbackModels is served when the backend listing fails.
var FallbackModels = []string{
	"lmstudio-community/Meta-Llama-3-8B-Instruct-GGUF",
	"TheBloke/Mistral-7B-Instruct-v0.2-GGUF",
	"NousResearch/Hermes-2-Pro-Llama-3-8B-GGUF",
}

const defaultListTimeout = 5 * time.Second

// Lister lists the models a backend advertises.
type Lister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Listing is the catalog answer. Note is set only for the fallback.
type Listing struct {
	Models []string
	Note   string
}

// Catalog combines the backend listing with the local fallback.
type Catalog struct {
	lister    Lister
	modelsDir string
	timeout   time.Duration
	log       zerolog.Logger
}

// NewCatalog builds a catalog. modelsDir may be empty.
func NewCatalog(l Lister, modelsDir string, log *zerolog.Logger) *Catalog {
	c := &Catalog{lister: l, modelsDir: modelsDir, timeout: defaultListTimeout, log: zerolog.Nop()}
	if log != nil {
		c.log = *log
	}
	return c
}

// Available returns the backend models, or the fallback list with a note
// when the backend errors. An empty but successful listing is returned as is.
func (c *Catalog) Available(ctx context.Context) Listing {
	if c.lister != nil {
		lctx, cancel := context.WithTimeout(ctx, c.timeout)
		models, err := c.lister.ListModels(lctx)
		cancel()
		if err == nil {
			if models == nil {
				models = []string{}
			}
			return Listing{Models: models}
		}
		c.log.Warn().Err(err).Msg("model listing failed; using fallback")
	}
	return Listing{Models: c.fallback(), Note: FallbackNote}
}

func (c *Catalog) fallback() []string {
	out := append([]string(nil), FallbackModels...)
	if c.modelsDir == "" || !fsutil.IsDir(c.modelsDir) {
		return out
	}
	local, err := LoadDir(c.modelsDir)
	if err != nil {
		c.log.Debug().Err(err).Str("dir", c.modelsDir).Msg("scan models dir")
		return out
	}
	return append(out, local...)
}
