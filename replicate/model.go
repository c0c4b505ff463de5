package replicate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/s0up4200/go-replicate/apierror"
)

// ModelRef identifies what a prediction runs: a model, optionally pinned to
// a version, or a bare version ID.
type ModelRef struct {
	Owner   string
	Name    string
	Version string
}

// ParseModelRef accepts "owner/name", "owner/name:version" or "version".
func ParseModelRef(s string) (ModelRef, error) {
	const op = "parse model"

	s = strings.TrimSpace(s)
	if s == "" {
		return ModelRef{}, apierror.InvalidInput(op, "model reference is empty")
	}

	model, version, pinned := strings.Cut(s, ":")
	if pinned && version == "" {
		return ModelRef{}, apierror.InvalidInput(op, fmt.Sprintf("%q has an empty version", s))
	}

	if !strings.Contains(model, "/") {
		if pinned {
			return ModelRef{}, apierror.InvalidInput(op, fmt.Sprintf("%q must be owner/name:version", s))
		}
		return ModelRef{Version: model}, nil
	}

	owner, name, _ := strings.Cut(model, "/")
	if owner == "" || name == "" || strings.Contains(name, "/") {
		return ModelRef{}, apierror.InvalidInput(op, fmt.Sprintf("%q must be owner/name", s))
	}
	return ModelRef{Owner: owner, Name: name, Version: version}, nil
}

// String formats the reference the way ParseModelRef accepts it.
func (m ModelRef) String() string {
	switch {
	case m.Owner == "":
		return m.Version
	case m.Version == "":
		return m.Owner + "/" + m.Name
	default:
		return m.Owner + "/" + m.Name + ":" + m.Version
	}
}

// endpoint returns the create path. Versioned runs go through
// /v1/predictions; unversioned runs use the model's latest version.
func (m ModelRef) endpoint() string {
	if m.Version != "" {
		return "/v1/predictions"
	}
	return fmt.Sprintf("/v1/models/%s/%s/predictions", url.PathEscape(m.Owner), url.PathEscape(m.Name))
}
