package mock

import (
	"errors"
	"sort"
	"sync"

	"spacetraveling/app/models"
	"spacetraveling/app/repositories"
)

// PageRepository is an in-memory repositories.PageRepository.
type PageRepository struct {
	pages map[string]*models.Page
	puts  int
	fail  int
	mutex sync.RWMutex
}

// ErrInjected is returned by Get after FailNext.
var ErrInjected = errors.New("injected store failure")

func NewPageRepository() *PageRepository {
	return &PageRepository{
		pages: make(map[string]*models.Page),
	}
}

func (m *PageRepository) Get(path string) (*models.Page, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.fail > 0 {
		m.fail--
		return nil, ErrInjected
	}
	page, exists := m.pages[path]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return page, nil
}

func (m *PageRepository) Put(page *models.Page) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.pages[page.Path] = page
	m.puts++
	return nil
}

func (m *PageRepository) Delete(path string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.pages[path]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.pages, path)
	return nil
}

func (m *PageRepository) List() ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	paths := make([]string, 0, len(m.pages))
	for p := range m.pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *PageRepository) Clear() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.pages = make(map[string]*models.Page)
	return nil
}

// Puts counts successful Put calls.
func (m *PageRepository) Puts() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.puts
}

// FailNext makes the next n Get calls fail with ErrInjected.
func (m *PageRepository) FailNext(n int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fail = n
}
