package jobxredis

import (
	"net/http"

	"github.com/Abraxas-365/escolar/pkg/errx"
)

var redisErrors = errx.NewRegistry("JOBX_REDIS")

// Redis outages map to 503.
var (
	ErrEnqueue   = redisErrors.Register("ENQUEUE", errx.TypeExternal, http.StatusServiceUnavailable, "Could not enqueue job")
	ErrDequeue   = redisErrors.Register("DEQUEUE", errx.TypeExternal, http.StatusServiceUnavailable, "Could not read from job queue")
	ErrGetJob    = redisErrors.Register("GET_JOB", errx.TypeExternal, http.StatusServiceUnavailable, "Could not load job")
	ErrSave      = redisErrors.Register("SAVE", errx.TypeExternal, http.StatusServiceUnavailable, "Could not update job state")
	ErrRetry     = redisErrors.Register("RETRY", errx.TypeExternal, http.StatusServiceUnavailable, "Could not schedule job retry")
	ErrPromote   = redisErrors.Register("PROMOTE", errx.TypeExternal, http.StatusServiceUnavailable, "Could not promote scheduled jobs")
	ErrMarshal   = redisErrors.Register("MARSHAL", errx.TypeInternal, http.StatusInternalServerError, "Failed to encode job")
	ErrUnmarshal = redisErrors.Register("UNMARSHAL", errx.TypeInternal, http.StatusInternalServerError, "Stored job is corrupt")
)
