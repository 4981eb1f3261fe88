package utils

import (
	"os"
	"path/filepath"

	logger "github.com/sirupsen/logrus"
)

// LogWriter holds the run log file handle so it can be closed on shutdown.
type LogWriter struct {
	logFile *os.File
}

type logFileHook struct {
	file      *os.File
	formatter logger.Formatter
	levels    []logger.Level
}

func (hook *logFileHook) Levels() []logger.Level {
	return hook.levels
}

func (hook *logFileHook) Fire(entry *logger.Entry) error {
	line, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = hook.file.Write(line)
	return err
}

// InitLogger configures the logrus standard logger from Config.Logging and
// attaches a per-run log file named after the batch id. The file tee runs at
// its own level, so a debug console run does not bloat the run log.
func InitLogger(batchID string) (*LogWriter, *logger.Entry) {
	logWriter := &LogWriter{}

	if Config.Logging.OutputStderr {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	if Config.Logging.OutputLevel != "" {
		logLevel, err := logger.ParseLevel(Config.Logging.OutputLevel)
		if err != nil {
			logger.Errorf("invalid log level: %v", Config.Logging.OutputLevel)
		} else {
			logger.SetLevel(logLevel)
		}
	}

	logFileDir := Config.Logging.FileDir
	if logFileDir == "" {
		logFileDir = Config.Cleanup.OutputDir
	}
	if logFileDir != "" {
		logFilePath := filepath.Join(logFileDir, "missing_email_cleanup_"+batchID+".log")
		logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			LogError(err, "error opening log file "+logFilePath, 0)
		} else {
			fileLevel := logger.GetLevel()
			if Config.Logging.FileLevel != "" {
				parsedLevel, err := logger.ParseLevel(Config.Logging.FileLevel)
				if err != nil {
					logger.Errorf("invalid file log level: %v", Config.Logging.FileLevel)
				} else {
					fileLevel = parsedLevel
				}
			}

			logWriter.logFile = logFile
			logger.AddHook(&logFileHook{
				file:      logFile,
				formatter: &logger.TextFormatter{DisableColors: true},
				levels:    logger.AllLevels[:fileLevel+1],
			})
		}
	}

	return logWriter, logger.NewEntry(logger.StandardLogger())
}

// Dispose closes the log file if one was opened.
func (lw *LogWriter) Dispose() {
	if lw.logFile != nil {
		lw.logFile.Close()
	}
}
