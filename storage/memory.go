package storage

import (
	"sort"
	"sync"

	"branchstore/utils"
)

// memStore is the in-memory engine, the default backend and the one the
// tests run against. Unique indexes mirror the relational constraints:
// (username), (card), (article.code), (guide.serial).
type memStore struct {
	mu sync.RWMutex

	nextCustomerID int64
	nextArticleID  int64
	nextGuideID    int64

	customersByUser map[string]*Customer
	cardsInUse      map[int64]string
	articlesByCode  map[int64]*Article
	articlesByID    map[int64]*Article
	guideRows       []*Guide
	serialsInUse    map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{
		customersByUser: make(map[string]*Customer),
		cardsInUse:      make(map[int64]string),
		articlesByCode:  make(map[int64]*Article),
		articlesByID:    make(map[int64]*Article),
		serialsInUse:    make(map[int64]bool),
	}
}

func (m *memStore) insertCustomer(c *Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customersByUser[c.Username]; ok {
		return utils.StoreError("duplicate username %q", c.Username)
	}
	if owner, ok := m.cardsInUse[c.Card]; ok {
		return utils.StoreError("card %v already registered to %q", c.Card, owner)
	}
	m.nextCustomerID++
	row := *c
	row.ID = m.nextCustomerID
	m.customersByUser[row.Username] = &row
	m.cardsInUse[row.Card] = row.Username
	c.ID = row.ID
	return nil
}

func (m *memStore) getCustomer(username string) (*Customer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.customersByUser[username]
	if !ok {
		return nil, false
	}
	cp := *row
	return &cp, true
}

func (m *memStore) updateCustomer(username, name, address string, card int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.customersByUser[username]
	if !ok {
		return utils.StoreError("unknown customer %q", username)
	}
	if owner, taken := m.cardsInUse[card]; taken && owner != username {
		return utils.StoreError("card %v already registered to %q", card, owner)
	}
	delete(m.cardsInUse, row.Card)
	row.Name, row.Address, row.Card = name, address, card
	m.cardsInUse[card] = username
	return nil
}

func (m *memStore) setCustomerStatus(username, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.customersByUser[username]
	if !ok {
		return utils.StoreError("unknown customer %q", username)
	}
	row.Status = status
	return nil
}

func (m *memStore) customers() []Customer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Customer, 0, len(m.customersByUser))
	for _, row := range m.customersByUser {
		res = append(res, *row)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (m *memStore) insertArticle(a *Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.articlesByCode[a.Code]; ok {
		return utils.StoreError("duplicate article code %v", a.Code)
	}
	m.nextArticleID++
	row := *a
	row.ID = m.nextArticleID
	m.articlesByCode[row.Code] = &row
	m.articlesByID[row.ID] = &row
	a.ID = row.ID
	return nil
}

func (m *memStore) getArticle(code int64) (*Article, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.articlesByCode[code]
	if !ok {
		return nil, false
	}
	cp := *row
	return &cp, true
}

func (m *memStore) updateArticle(code int64, name string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.articlesByCode[code]
	if !ok {
		return utils.StoreError("unknown article code %v", code)
	}
	row.Name, row.Price = name, price
	return nil
}

func (m *memStore) setArticleStock(code int64, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.articlesByCode[code]
	if !ok {
		return utils.StoreError("unknown article code %v", code)
	}
	// Guarded transition, same as the UPDATE ... WHERE stock = ? statement.
	if row.Stock == from {
		row.Stock = to
	}
	return nil
}

func (m *memStore) setArticleStockByID(id int64, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.articlesByID[id]
	if !ok {
		return utils.StoreError("unknown article id %v", id)
	}
	if row.Stock == from {
		row.Stock = to
	}
	return nil
}

func (m *memStore) articles() []Article {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Article, 0, len(m.articlesByCode))
	for _, row := range m.articlesByCode {
		res = append(res, *row)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (m *memStore) insertGuide(g *Guide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.serialsInUse[g.Serial] {
		return utils.StoreError("duplicate guide serial %v", g.Serial)
	}
	m.nextGuideID++
	row := *g
	row.ID = m.nextGuideID
	m.guideRows = append(m.guideRows, &row)
	m.serialsInUse[row.Serial] = true
	g.ID = row.ID
	return nil
}

func (m *memStore) guides() []Guide {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Guide, 0, len(m.guideRows))
	for _, row := range m.guideRows {
		res = append(res, *row)
	}
	return res
}

func (m *memStore) close() {}
