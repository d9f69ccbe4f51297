package core

// TransformationKind is the closed set of ways an output column can be
// derived from its inputs. It is a total match target for the select-lineage
// engine: adding a new SQL shape means adding a case here, never falling
// through silently.
type TransformationKind string

const (
	Identity    TransformationKind = "IDENTITY"
	Rename      TransformationKind = "RENAME"
	Cast        TransformationKind = "CAST"
	Case        TransformationKind = "CASE"
	Aggregation TransformationKind = "AGGREGATION"
	Window      TransformationKind = "WINDOW"
	Arithmetic  TransformationKind = "ARITHMETIC"
	StringParse TransformationKind = "STRING_PARSE"
	Concat      TransformationKind = "CONCAT"
	Expression  TransformationKind = "EXPRESSION"
	Union       TransformationKind = "UNION"
	Exec        TransformationKind = "EXEC"
	Constant    TransformationKind = "CONSTANT"
	Unknown     TransformationKind = "UNKNOWN"
)

// ColumnLineage records how one output column was produced.
//
// Invariant: if Kind is Identity or Rename, Inputs has exactly one element.
type ColumnLineage struct {
	OutputColumn string              `json:"outputColumn"`
	Inputs       []ColumnReference   `json:"inputs"`
	Kind         TransformationKind  `json:"kind"`
	Description  string              `json:"description"`
}

// AddInput appends a reference if not already present (by Equal), preserving
// first-seen order.
func (c *ColumnLineage) AddInput(ref ColumnReference) {
	for _, existing := range c.Inputs {
		if existing.Equal(ref) {
			return
		}
	}
	c.Inputs = append(c.Inputs, ref)
}

// Validate enforces the single-input invariant for IDENTITY/RENAME.
func (c ColumnLineage) Validate() error {
	if (c.Kind == Identity || c.Kind == Rename) && len(c.Inputs) != 1 {
		return &InvariantError{
			Msg: "IDENTITY/RENAME lineage must have exactly one input",
			Column: c.OutputColumn,
		}
	}
	return nil
}

// InvariantError reports a violated data-model invariant; callers typically
// downgrade these to warnings rather than aborting the run.
type InvariantError struct {
	Msg    string
	Column string
}

func (e *InvariantError) Error() string {
	if e.Column != "" {
		return e.Msg + " (column=" + e.Column + ")"
	}
	return e.Msg
}
