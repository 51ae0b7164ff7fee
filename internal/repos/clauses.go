package repos

import "gorm.io/gorm/clause"

// onConflictDoNothing builds an insert-if-absent clause targeting the named
// unique columns. RowsAffected tells the caller whether the insert won.
func onConflictDoNothing(cols ...string) clause.OnConflict {
	cc := make([]clause.Column, 0, len(cols))
	for _, c := range cols {
		cc = append(cc, clause.Column{Name: c})
	}
	return clause.OnConflict{Columns: cc, DoNothing: true}
}
