package workflow

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrInvalidInput is returned when raw lead input matches neither accepted
// shape: a contact email address, or "<first> <last> - <organization>".
var ErrInvalidInput = eris.New(`unrecognized lead input: expected an email address (jane.doe@acme.com) or "<first> <last> - <organization>"`)

var (
	contactPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nameOrgPattern = regexp.MustCompile(`^(.+?)\s*-\s*(.+)$`)
)

// InputFragment is the validated, classified form of raw lead input. It
// is produced before the graph starts and written to the state by the
// entry node.
type InputFragment struct {
	Mode           model.InputMode
	ContactAddress string
	PersonName     string
	Organization   string
}

// Normalize validates raw lead input and classifies it as a contact
// address or a name/organization pair. Whitespace is trimmed first, so
// the result is stable under repeated application to its own fields.
// Input matching neither shape fails with ErrInvalidInput and the
// workflow never starts.
func Normalize(raw string) (*InputFragment, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, eris.Wrap(ErrInvalidInput, "empty input")
	}

	if contactPattern.MatchString(raw) {
		return &InputFragment{
			Mode:           model.InputByContact,
			ContactAddress: raw,
		}, nil
	}

	if m := nameOrgPattern.FindStringSubmatch(raw); m != nil {
		name := strings.TrimSpace(m[1])
		org := strings.TrimSpace(m[2])
		if len(strings.Fields(name)) < 2 {
			return nil, eris.Wrap(ErrInvalidInput, "name must include first and last name")
		}
		if org == "" {
			return nil, eris.Wrap(ErrInvalidInput, "organization is empty")
		}
		return &InputFragment{
			Mode:         model.InputByNameOrg,
			PersonName:   name,
			Organization: org,
		}, nil
	}

	return nil, ErrInvalidInput
}

// normalizeNode writes the pre-validated fragment into the state as the
// graph's entry step.
func normalizeNode(frag *InputFragment) nodeFunc {
	return func(_ context.Context, _ *model.WorkflowState) update {
		return update{
			fragment: frag,
			status:   []string{"input_normalized"},
		}
	}
}
