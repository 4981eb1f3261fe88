package types

// Config is a struct to hold the configuration data
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"LOGGING_OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"LOGGING_OUTPUT_STDERR"`

		FileDir   string `yaml:"fileDir" envconfig:"LOGGING_FILE_DIR"`
		FileLevel string `yaml:"fileLevel" envconfig:"LOGGING_FILE_LEVEL"`
	} `yaml:"logging"`

	Cleanup struct {
		// InputFile is the CSV file with the client IDs to process ("Client ID" header).
		InputFile string `yaml:"inputFile" envconfig:"CLEANUP_INPUT_FILE"`
		// OutputDir is where report files, rollback scripts and logs are written.
		OutputDir string `yaml:"outputDir" envconfig:"CLEANUP_OUTPUT_DIR"`
		// DeletionReason is stamped into the backup table audit columns.
		DeletionReason string `yaml:"deletionReason" envconfig:"CLEANUP_DELETION_REASON"`
		// SampleSize limits how many records are echoed in dry run output.
		SampleSize int `yaml:"sampleSize" envconfig:"CLEANUP_SAMPLE_SIZE"`
	} `yaml:"cleanup"`

	Database DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Engine      string                     `yaml:"engine" envconfig:"DATABASE_ENGINE"`
	Sqlite      *SqliteDatabaseConfig      `yaml:"sqlite"`
	Pgsql       *PgsqlDatabaseConfig       `yaml:"pgsql"`
	PgsqlWriter *PgsqlWriterDatabaseConfig `yaml:"pgsqlWriter"`
}

type SqliteDatabaseConfig struct {
	File         string `yaml:"file" envconfig:"DATABASE_SQLITE_FILE"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_SQLITE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_SQLITE_MAX_IDLE_CONNS"`
}

type PgsqlDatabaseConfig struct {
	Username     string `yaml:"user" envconfig:"DATABASE_PGSQL_USERNAME"`
	Password     string `yaml:"password" envconfig:"DATABASE_PGSQL_PASSWORD"`
	Name         string `yaml:"name" envconfig:"DATABASE_PGSQL_NAME"`
	Host         string `yaml:"host" envconfig:"DATABASE_PGSQL_HOST"`
	Port         string `yaml:"port" envconfig:"DATABASE_PGSQL_PORT"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_PGSQL_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_PGSQL_MAX_IDLE_CONNS"`
}

type PgsqlWriterDatabaseConfig struct {
	Username     string `yaml:"user" envconfig:"DATABASE_PGSQL_WRITER_USERNAME"`
	Password     string `yaml:"password" envconfig:"DATABASE_PGSQL_WRITER_PASSWORD"`
	Name         string `yaml:"name" envconfig:"DATABASE_PGSQL_WRITER_NAME"`
	Host         string `yaml:"host" envconfig:"DATABASE_PGSQL_WRITER_HOST"`
	Port         string `yaml:"port" envconfig:"DATABASE_PGSQL_WRITER_PORT"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_PGSQL_WRITER_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_PGSQL_WRITER_MAX_IDLE_CONNS"`
}
