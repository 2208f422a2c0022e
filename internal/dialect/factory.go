package dialect

import (
	"fmt"
	"strings"
)

// GetDriver returns the Driver for a database/sql driver name.
func GetDriver(driver string) (Driver, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return &Postgres{}, nil
	case "sqlserver", "mssql":
		return &SQLServer{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q (supported: sqlserver, postgres, pgx)", driver)
	}
}

// Ensure interface implementation
var _ Driver = (*SQLServer)(nil)
var _ Driver = (*Postgres)(nil)
