package controllers

import (
	"net/http"

	"github.com/blogwatch/backend/api/responses"
	"github.com/blogwatch/backend/internal/scheduler"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
)

// PollControl is the slice of the scheduler the poll endpoints need.
type PollControl interface {
	TriggerNow(name string) error
	Status() scheduler.Status
}

// TriggerPoll requests an immediate feed poll. The poll itself runs in the
// scheduler; an already-running cycle makes a second trigger a no-op inside
// the ingest service.
func TriggerPoll(ctl PollControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctl == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}

		if err := ctl.TriggerNow(scheduler.PollJobName); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "poll triggered"})
	}
}

// PollStatus returns the scheduler's view of the polling lifecycle.
func PollStatus(ctl PollControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctl == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}
		responses.WriteSuccess(w, ctl.Status())
	}
}
