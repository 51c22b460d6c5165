package shared

import (
	"net/http"
	"strconv"
)

// ActorHeader carries the acting user id, resolved by the upstream
// authentication proxy. Permission checks happen outside this service.
const ActorHeader = "X-Actor-Id"

// ActorID extracts the acting user id from the request, zero when absent.
func ActorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get(ActorHeader), 10, 64)
	return id
}
