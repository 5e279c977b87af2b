package logging

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// LoggerManager выдаёт по одному логгеру на компонент (world, multiblock,
// security, api, eventbus) с общими настройками.
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	opts    Options
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newManager(DefaultOptions())
	})
	return globalManager
}

func newManager(opts Options) *LoggerManager {
	return &LoggerManager{loggers: make(map[string]*Logger), opts: opts}
}

func currentOptions() Options {
	lm := GetLoggerManager()
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.opts
}

// Configure задаёт параметры новых логгеров. Пороги уже созданных
// логгеров приводятся к новым настройкам, файлы не переоткрываются.
func (lm *LoggerManager) Configure(opts Options) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.opts = opts
	for name, l := range lm.loggers {
		l.SetLevels(levelFor(opts, name), opts.FileLevel)
	}
}

func levelFor(opts Options, component string) LogLevel {
	if lvl, ok := opts.Components[component]; ok {
		return lvl
	}
	return opts.ConsoleLevel
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении.
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	l, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return l, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}
	l, err := NewLoggerWithOptions(component, lm.opts)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	lm.loggers[component] = l
	return l, nil
}

// MustGetLogger возвращает логгер компонента; если файл не открылся,
// логгер пишет только в консоль.
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	l, err := lm.GetLogger(component)
	if err == nil {
		return l
	}
	defaultLogger.Warn("%v, используется только консоль", err)

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.loggers[component]; ok {
		return l
	}
	opts := lm.opts
	opts.Dir = ""
	l, _ = NewLoggerWithOptions(component, opts)
	lm.loggers[component] = l
	return l
}

// CloseAll закрывает файлы всех логгеров и забывает их.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for name, l := range lm.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("логгер %s: %w", name, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// ListComponents возвращает имена компонентов по алфавиту.
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	names := make([]string, 0, len(lm.loggers))
	for name := range lm.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetLogLevel меняет пороги логгера компонента и запоминает порог
// консоли для пересоздания.
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	l, ok := lm.loggers[component]
	if !ok {
		return fmt.Errorf("логгер %s не найден", component)
	}
	l.SetLevels(consoleLevel, fileLevel)

	overrides := make(map[string]LogLevel, len(lm.opts.Components)+1)
	for k, v := range lm.opts.Components {
		overrides[k] = v
	}
	overrides[component] = consoleLevel
	lm.opts.Components = overrides
	return nil
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера.
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetWorldLogger() *Logger      { return GetComponentLogger("world") }
func GetMultiblockLogger() *Logger { return GetComponentLogger("multiblock") }
func GetSecurityLogger() *Logger   { return GetComponentLogger("security") }
func GetAPILogger() *Logger        { return GetComponentLogger("api") }
