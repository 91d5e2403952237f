package http

import (
	"log/slog"
	"time"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/metrics"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/livesync"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/repository"
)

// EmptyMessage is shown when an owner has no projects.
const EmptyMessage = "No projects yet. Create your first project!"

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	store           repository.RecordStore
	log             *slog.Logger
	metrics         *metrics.Metrics
	snapshotTimeout time.Duration
	keepAlive       time.Duration
}

// Options configures a Handler. Zero values fall back to defaults.
type Options struct {
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	SnapshotTimeout time.Duration
	KeepAlive       time.Duration
}

func New(store repository.RecordStore, opts Options) *Handler {
	h := &Handler{
		store:           store,
		log:             opts.Logger,
		metrics:         opts.Metrics,
		snapshotTimeout: opts.SnapshotTimeout,
		keepAlive:       opts.KeepAlive,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.snapshotTimeout <= 0 {
		h.snapshotTimeout = 5 * time.Second
	}
	if h.keepAlive <= 0 {
		h.keepAlive = 15 * time.Second
	}
	return h
}

type createReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type projectDTO struct {
	domain.Project
	CreatedLabel string `json:"createdLabel"`
}

type snapshotDTO struct {
	State    string       `json:"state"`
	Projects []projectDTO `json:"projects"`
	Message  string       `json:"message,omitempty"`
}

func toSnapshotDTO(v livesync.View) snapshotDTO {
	out := snapshotDTO{
		State:    v.State.String(),
		Projects: make([]projectDTO, 0, len(v.Projects)),
	}
	for _, p := range v.Projects {
		out.Projects = append(out.Projects, projectDTO{Project: p, CreatedLabel: p.DisplayDate()})
	}
	if len(out.Projects) == 0 {
		out.Message = EmptyMessage
	}
	return out
}
