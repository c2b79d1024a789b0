package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/types"
)

// errTooManyRequests marks a request rejected by the mutating-route
// rate limiter; writeError maps it to 429 before errorToResponse is
// consulted, so it is never logged as internal.
var errTooManyRequests = errors.New("rate_limited")

// errMissingHolder marks an /lease/acquire call missing its required
// holder field.
var errMissingHolder = fmt.Errorf("%w: holder is required", types.ErrInvalidArgument)

// leaseToken reads the X-Lease-Id header spec.md §6 requires on every
// mutating endpoint.
func leaseToken(r *http.Request) types.LeaseID {
	return types.LeaseID(r.Header.Get("X-Lease-Id"))
}

// writeJSON encodes v as the response body with status and a JSON
// content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err through errorToResponse and writes the result.
func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	if errors.Is(err, errTooManyRequests) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate_limited"})
		return
	}
	status, body := errorToResponse(log, err)
	writeJSON(w, status, body)
}

// decodeJSON decodes the request body into v, returning a wrapped
// types.ErrInvalidArgument on any failure.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}
	return nil
}
