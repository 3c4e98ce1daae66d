package logging

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// LoggerManager хранит логгеры компонентов (render, scheduler, storage, api)
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger

	// Уровни для новых логгеров после SetLevels
	levelsSet bool
	console   LogLevel
	file      LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

func newLoggerManager() *LoggerManager {
	return &LoggerManager{loggers: make(map[string]*Logger)}
}

// GetLogger возвращает логгер для компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger, nil
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Проверяем еще раз на случай race condition
	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
	}
	if lm.levelsSet {
		logger.SetLevels(lm.console, lm.file)
	}

	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный fallback при ошибке
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		logger = NewConsoleLogger(component, os.Stdout)
		lm.mu.RLock()
		if lm.levelsSet {
			logger.SetLevels(lm.console, lm.file)
		}
		lm.mu.RUnlock()
	}
	return logger
}

// SetLevels меняет уровни всех существующих и будущих логгеров компонентов
func (lm *LoggerManager) SetLevels(console, file LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.levelsSet = true
	lm.console = console
	lm.file = file
	for _, l := range lm.loggers {
		l.SetLevels(console, file)
	}
}

// SetLogLevel меняет уровни одного компонента
func (lm *LoggerManager) SetLogLevel(component string, console, file LogLevel) error {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()
	if !exists {
		return fmt.Errorf("logger for component %s not found", component)
	}
	logger.SetLevels(console, file)
	return nil
}

// CloseAll закрывает все логгеры
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", component, err)
		}
	}

	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// ListComponents имена зарегистрированных компонентов по алфавиту
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// GetComponentLogger логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetRenderLogger() *Logger {
	return GetComponentLogger("render")
}

func GetSchedulerLogger() *Logger {
	return GetComponentLogger("scheduler")
}

func GetStorageLogger() *Logger {
	return GetComponentLogger("storage")
}

func GetAPILogger() *Logger {
	return GetComponentLogger("api")
}
