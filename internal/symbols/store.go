package symbols

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/skalibog/spothook/pkg/logger"
	"github.com/skalibog/spothook/pkg/models"
	"go.uber.org/zap"
)

// Store единственный писатель файла конфигурации символов
type Store struct {
	path string

	mu      sync.Mutex
	configs []models.SymbolConfig
	dirty   bool
}

// Open загружает и проверяет конфигурацию
func Open(path string) (*Store, error) {
	configs, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(configs); err != nil {
		return nil, err
	}
	return NewStore(path, configs), nil
}

// NewStore создает хранилище поверх уже загруженных конфигураций
func NewStore(path string, configs []models.SymbolConfig) *Store {
	return &Store{path: path, configs: append([]models.SymbolConfig(nil), configs...)}
}

// Configs копия текущих конфигураций
func (s *Store) Configs() []models.SymbolConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SymbolConfig(nil), s.configs...)
}

// SaveAll заменяет все конфигурации и перезаписывает файл
func (s *Store) SaveAll(configs []models.SymbolConfig) error {
	if err := Validate(configs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = append([]models.SymbolConfig(nil), configs...)
	return s.writeLocked()
}

// Update сохраняет конфигурацию одного символа. При ошибке записи
// изменение остается в памяти и будет записано при следующем Flush.
func (s *Store) Update(cfg models.SymbolConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.configs {
		if c.Symbol() == cfg.Symbol() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.Errorf("symbol %s is not configured", cfg.Symbol())
	}

	s.configs[idx] = cfg
	return s.writeLocked()
}

// Flush записывает файл, если предыдущая запись не удалась
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.writeLocked()
}

// Dirty есть ли незаписанные изменения
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Store) writeLocked() error {
	if err := writeAtomic(s.path, s.configs); err != nil {
		s.dirty = true
		return err
	}
	s.dirty = false
	logger.Debug("Конфигурация символов сохранена", zap.String("path", s.path), zap.Int("symbols", len(s.configs)))
	return nil
}

// writeAtomic пишет во временный файл рядом и переименовывает его
func writeAtomic(path string, configs []models.SymbolConfig) error {
	data, err := sonic.MarshalIndent(configs, "", "    ")
	if err != nil {
		return errors.Wrap(err, "marshal symbol configs")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "rename temp file")
}
