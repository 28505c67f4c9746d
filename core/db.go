package core

// DBOrdering describes an ORDER BY term for list queries.
type DBOrdering struct {
	Field     string
	Ascending bool
	NullsLast bool
}

func (ord DBOrdering) String() string {
	s := ord.Field
	if ord.Ascending {
		s += " ASC"
	} else {
		s += " DESC"
	}
	if ord.NullsLast {
		s += " NULLS LAST"
	}
	return s
}

// CreatedDescOrdering is the default listing order: newest records first,
// records without a timestamp last.
var CreatedDescOrdering = DBOrdering{Field: "created_at", NullsLast: true}
