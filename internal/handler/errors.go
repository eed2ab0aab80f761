package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/persistence"
	"tycoon-engine/internal/realtime"
	"tycoon-engine/internal/service"
	"tycoon-engine/pkg/apierror"
	"tycoon-engine/pkg/response"
)

func withCode(code string, build func(string) *apierror.Error) func(string) *apierror.Error {
	return func(message string) *apierror.Error {
		e := build(message)
		e.Code = code
		return e
	}
}

// domainErrors maps engine errors onto HTTP responses.
var domainErrors = []apierror.Rule{
	{Target: game.ErrInsufficientFunds, Build: apierror.PaymentRequired},
	{Target: game.ErrAlreadyOwned, Build: apierror.AlreadyOwned},
	{Target: game.ErrNotFound, Build: apierror.NotFound},
	{Target: game.ErrLimitReached, Build: withCode("LIMIT_REACHED", apierror.Conflict)},
	{Target: game.ErrInvalidArgument, Build: apierror.BadRequest},
	{Target: game.ErrIntroRequired, Build: withCode("INTRO_REQUIRED", apierror.Conflict)},
	{Target: game.ErrClosed, Build: apierror.ServiceUnavailable},

	{Target: persistence.ErrNoUser, Build: apierror.Unauthorized},
	{Target: persistence.ErrSaveSuppressed, Build: withCode("SAVE_SUPPRESSED", apierror.Conflict)},
	{Target: persistence.ErrNoSave, Build: apierror.NotFound},
	{Target: persistence.ErrCorruptSave, Build: withCode("CORRUPT_SAVE", apierror.Conflict)},

	{Target: service.ErrSniperProtection, Build: withCode("SNIPER_PROTECTION", apierror.Conflict)},
	{Target: service.ErrSold, Build: withCode("SOLD", apierror.Conflict)},
	{Target: service.ErrAlreadyInHolding, Build: withCode("ALREADY_IN_HOLDING", apierror.Conflict)},
	{Target: service.ErrInvalidToken, Build: apierror.Unauthorized},
	{Target: service.ErrUnknownProvider, Build: apierror.BadRequest},

	{Target: realtime.ErrHubClosed, Build: apierror.ServiceUnavailable},
}

// writeError converts err to an API error and writes it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierror.FromDomain(err, domainErrors)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Printf("[Handler] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	response.Error(w, apiErr)
}

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return false
	}
	return true
}
