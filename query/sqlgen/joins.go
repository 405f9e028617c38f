package sqlgen

import (
	"fmt"

	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/registry"
)

// joins renders the plan's join requests against the registry. The key
// equality comes from the association descriptor; extra conditions from
// the plan are appended to the ON clause, so their placeholders are
// numbered before anything in WHERE.
func (b *build) joins(parent *registry.Table, joins []plan.Join) error {
	for _, j := range joins {
		clause, err := b.join(parent, j)
		if err != nil {
			return err
		}
		b.parts = append(b.parts, clause)
	}
	return nil
}

func (b *build) join(parent *registry.Table, j plan.Join) (string, error) {
	assoc, ok := parent.Association(j.Assoc)
	if !ok {
		return "", fmt.Errorf("%w: %q on table %q", ErrUnknownAssociation, j.Assoc, parent.Name())
	}
	target, err := assoc.TargetTable()
	if err != nil {
		return "", err
	}

	var left, right string
	switch assoc.Kind {
	case registry.BelongsTo:
		left = b.qualify(parent.Name(), assoc.ForeignKey)
		right = b.qualify(target.Name(), assoc.References)
	default:
		left = b.qualify(target.Name(), assoc.ForeignKey)
		right = b.qualify(parent.Name(), assoc.References)
	}

	clause := fmt.Sprintf("%s %s ON %s = %s",
		j.Kind, b.dialect.QuoteIdent(target.Name()), left, right)

	for _, pr := range j.On {
		rendered, err := b.predicate(pr)
		if err != nil {
			return "", err
		}
		clause += " AND " + rendered
	}
	return clause, nil
}
