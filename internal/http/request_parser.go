package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"medrent/internal/core"
)

// Identity headers set by the authenticating proxy in front of the service.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

var (
	errMissingActor = errors.New("missing " + HeaderActorID + " header")
	errInvalidKind  = errors.New("transaction kind must be sale or rental")
)

// ParseAsOf reads the as_of query parameter. Absent means today.
func ParseAsOf(query url.Values, today core.Date) (core.Date, error) {
	v := strings.TrimSpace(query.Get("as_of"))
	if v == "" {
		return today, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("as_of: expected YYYY-MM-DD, got %q", v)
	}
	return d, nil
}

// ParseRange reads the optional from and to query parameters. Either bound
// may be left open.
func ParseRange(query url.Values) (core.DateRange, error) {
	var r core.DateRange
	for _, p := range []struct {
		name string
		dst  *core.Date
	}{{"from", &r.Start}, {"to", &r.End}} {
		v := strings.TrimSpace(query.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", p.name, v)
		}
		*p.dst = d
	}
	if err := r.Validate(); err != nil {
		return core.DateRange{}, err
	}
	return r, nil
}

// ParseActor builds the caller identity from the proxy headers. A missing
// role means operator.
func ParseActor(h http.Header) (core.Actor, error) {
	actor := core.Actor{
		ID:   strings.TrimSpace(h.Get(HeaderActorID)),
		Role: core.Role(strings.ToLower(strings.TrimSpace(h.Get(HeaderActorRole)))),
	}
	if actor.ID == "" {
		return core.Actor{}, errMissingActor
	}
	if actor.Role == "" {
		actor.Role = core.RoleOperator
	}
	if err := actor.Validate(); err != nil {
		return core.Actor{}, err
	}
	return actor, nil
}

// ParseKind validates the {kind} path segment.
func ParseKind(s string) (core.TransactionKind, error) {
	kind := core.TransactionKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", errInvalidKind
	}
	return kind, nil
}

// ParseNotificationID checks that id has the shape of a notification id.
func ParseNotificationID(id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("notification id: %w", err)
	}
	return u.String(), nil
}
