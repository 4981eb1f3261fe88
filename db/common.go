package db

import (
	"embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/wealthops/cleanup-utils/dbtypes"
	"github.com/wealthops/cleanup-utils/types"

	_ "github.com/jackc/pgx/v4/stdlib"
)

//go:embed schema/pgsql/*.sql
var EmbedPgsqlSchema embed.FS

//go:embed schema/sqlite/*.sql
var EmbedSqliteSchema embed.FS

// Database wraps the writer/reader connections for one cleanup run.
// It is acquired at the start of a run and closed on all exit paths.
type Database struct {
	engine      dbtypes.DBEngineType
	readerDb    *sqlx.DB
	writerDb    *sqlx.DB
	writerMutex sync.Mutex
	logger      *logrus.Entry
}

var logger = logrus.StandardLogger().WithField("module", "db")

func checkDbConn(dbConn *sqlx.DB, dataBaseName string) error {
	// The golang sql driver does not properly implement PingContext
	// therefore we use a timer to catch db connection timeouts
	errc := make(chan error, 1)
	go func() {
		errc <- dbConn.Ping()
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("unable to ping %s: %v", dataBaseName, err)
		}
	case <-time.After(15 * time.Second):
		return fmt.Errorf("timeout while connecting to %s", dataBaseName)
	}

	return nil
}

func initSqlite(config *types.SqliteDatabaseConfig) (*sqlx.DB, *sqlx.DB, error) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 50
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.Infof("initializing sqlite connection to %v with %v/%v conn limit", config.File, config.MaxIdleConns, config.MaxOpenConns)
	dbConn, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)", config.File))
	if err != nil {
		return nil, nil, fmt.Errorf("error opening sqlite database: %v", err)
	}

	if err := checkDbConn(dbConn, "database"); err != nil {
		return nil, nil, err
	}
	dbConn.SetConnMaxIdleTime(0)
	dbConn.SetConnMaxLifetime(0)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	return dbConn, dbConn, nil
}

func initPgsql(writer *types.PgsqlDatabaseConfig, reader *types.PgsqlDatabaseConfig) (*sqlx.DB, *sqlx.DB, error) {
	if writer.MaxOpenConns == 0 {
		writer.MaxOpenConns = 50
	}
	if writer.MaxIdleConns == 0 {
		writer.MaxIdleConns = 10
	}
	if writer.MaxOpenConns < writer.MaxIdleConns {
		writer.MaxIdleConns = writer.MaxOpenConns
	}

	if reader.MaxOpenConns == 0 {
		reader.MaxOpenConns = 50
	}
	if reader.MaxIdleConns == 0 {
		reader.MaxIdleConns = 10
	}
	if reader.MaxOpenConns < reader.MaxIdleConns {
		reader.MaxIdleConns = reader.MaxOpenConns
	}

	logger.Infof("initializing pgsql writer connection to %v with %v/%v conn limit", writer.Host, writer.MaxIdleConns, writer.MaxOpenConns)
	dbConnWriter, err := sqlx.Open("pgx", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", writer.Username, writer.Password, writer.Host, writer.Port, writer.Name))
	if err != nil {
		return nil, nil, fmt.Errorf("error getting pgsql writer database: %v", err)
	}

	if err := checkDbConn(dbConnWriter, "database"); err != nil {
		return nil, nil, err
	}
	dbConnWriter.SetConnMaxIdleTime(time.Second * 30)
	dbConnWriter.SetConnMaxLifetime(time.Second * 60)
	dbConnWriter.SetMaxOpenConns(writer.MaxOpenConns)
	dbConnWriter.SetMaxIdleConns(writer.MaxIdleConns)

	logger.Infof("initializing pgsql reader connection to %v with %v/%v conn limit", reader.Host, reader.MaxIdleConns, reader.MaxOpenConns)
	dbConnReader, err := sqlx.Open("pgx", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", reader.Username, reader.Password, reader.Host, reader.Port, reader.Name))
	if err != nil {
		dbConnWriter.Close()
		return nil, nil, fmt.Errorf("error getting pgsql reader database: %v", err)
	}

	if err := checkDbConn(dbConnReader, "read replica database"); err != nil {
		dbConnWriter.Close()
		return nil, nil, err
	}
	dbConnReader.SetConnMaxIdleTime(time.Second * 30)
	dbConnReader.SetConnMaxLifetime(time.Second * 60)
	dbConnReader.SetMaxOpenConns(reader.MaxOpenConns)
	dbConnReader.SetMaxIdleConns(reader.MaxIdleConns)
	return dbConnWriter, dbConnReader, nil
}

// NewDatabase connects to the configured database engine.
func NewDatabase(config *types.DatabaseConfig) (*Database, error) {
	db := &Database{
		logger: logger,
	}

	switch config.Engine {
	case "sqlite":
		if config.Sqlite == nil {
			return nil, fmt.Errorf("missing sqlite database config")
		}
		db.engine = dbtypes.DBEngineSqlite
		writerDb, readerDb, err := initSqlite(config.Sqlite)
		if err != nil {
			return nil, err
		}
		db.writerDb = writerDb
		db.readerDb = readerDb
	case "pgsql":
		if config.Pgsql == nil {
			return nil, fmt.Errorf("missing pgsql database config")
		}
		readerConfig := config.Pgsql
		writerConfig := (*types.PgsqlDatabaseConfig)(config.PgsqlWriter)
		if writerConfig == nil || writerConfig.Host == "" {
			writerConfig = readerConfig
		}
		db.engine = dbtypes.DBEnginePgsql
		writerDb, readerDb, err := initPgsql(writerConfig, readerConfig)
		if err != nil {
			return nil, err
		}
		db.writerDb = writerDb
		db.readerDb = readerDb
	default:
		return nil, fmt.Errorf("unknown database engine type: %s", config.Engine)
	}

	return db, nil
}

func (db *Database) Engine() dbtypes.DBEngineType {
	return db.engine
}

func (db *Database) Close() {
	err := db.writerDb.Close()
	if err != nil {
		db.logger.Errorf("Error closing writer db connection: %v", err)
	}
	if db.readerDb != db.writerDb {
		err = db.readerDb.Close()
		if err != nil {
			db.logger.Errorf("Error closing reader db connection: %v", err)
		}
	}
}

func (db *Database) RunTransaction(handler func(tx *sqlx.Tx) error) error {
	if db.engine == dbtypes.DBEngineSqlite {
		db.writerMutex.Lock()
		defer db.writerMutex.Unlock()
	}

	tx, err := db.writerDb.Beginx()
	if err != nil {
		return fmt.Errorf("error starting db transactions: %v", err)
	}

	defer tx.Rollback()

	err = handler(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("error committing db transaction: %v", err)
	}

	return nil
}

func (db *Database) ApplyEmbeddedDbSchema(version int64) error {
	var engineDialect string
	var schemaDirectory string
	switch db.engine {
	case dbtypes.DBEnginePgsql:
		goose.SetBaseFS(EmbedPgsqlSchema)
		engineDialect = "postgres"
		schemaDirectory = "schema/pgsql"
	case dbtypes.DBEngineSqlite:
		goose.SetBaseFS(EmbedSqliteSchema)
		engineDialect = "sqlite3"
		schemaDirectory = "schema/sqlite"
	default:
		return fmt.Errorf("unknown database engine")
	}
	if err := goose.SetDialect(engineDialect); err != nil {
		return err
	}

	if version == -2 {
		if err := goose.Up(db.writerDb.DB, schemaDirectory, goose.WithAllowMissing()); err != nil {
			return err
		}
	} else if version == -1 {
		if err := goose.UpByOne(db.writerDb.DB, schemaDirectory, goose.WithAllowMissing()); err != nil {
			return err
		}
	} else {
		if err := goose.UpTo(db.writerDb.DB, schemaDirectory, version, goose.WithAllowMissing()); err != nil {
			return err
		}
	}

	return nil
}

func (db *Database) EngineQuery(queryMap map[dbtypes.DBEngineType]string) string {
	if queryMap[db.engine] != "" {
		return queryMap[db.engine]
	}
	return queryMap[dbtypes.DBEngineAny]
}
