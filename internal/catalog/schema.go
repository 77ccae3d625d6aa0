package catalog

// schemaStatements create the catalog tables. The DDL is kept to the subset
// SQLite and Dolt (MySQL dialect) both accept, and statements are executed
// one at a time.
//
// Tables:
//   - filters: one row per extracted filter
//   - filter_options: options in declaration order (seq)
//   - parse_failures: files that produced no tree
//   - registered: registration scan output in order
//   - run_info: source root and counters of the last saved run
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS filters (
    name VARCHAR(255) PRIMARY KEY,
    description TEXT NOT NULL,
    ident VARCHAR(255),
    file VARCHAR(512)
)`,
	`CREATE TABLE IF NOT EXISTS filter_options (
    filter_name VARCHAR(255) NOT NULL,
    seq INTEGER NOT NULL,
    name VARCHAR(255) NOT NULL,
    type_tag VARCHAR(128) NOT NULL,
    description TEXT NOT NULL,
    offset_token VARCHAR(255),
    default_value TEXT,
    PRIMARY KEY (filter_name, seq)
)`,
	`CREATE TABLE IF NOT EXISTS parse_failures (
    file VARCHAR(512) PRIMARY KEY,
    kind VARCHAR(32) NOT NULL,
    message TEXT
)`,
	`CREATE TABLE IF NOT EXISTS registered (
    seq INTEGER PRIMARY KEY,
    ident VARCHAR(255) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS run_info (
    name VARCHAR(64) PRIMARY KEY,
    value TEXT NOT NULL
)`,
}

// dataTables are cleared before each saved run, children first.
var dataTables = []string{"filter_options", "filters", "parse_failures", "registered", "run_info"}

// initSchema creates the database tables if they don't exist.
func (c *Catalog) initSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := c.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
