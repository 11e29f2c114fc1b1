package storage

import (
	"strconv"

	"branchstore/configs"
	"branchstore/utils"
)

// engine is the method set every backend implements. The Store picks one at
// open time based on configs.StorageType.
type engine interface {
	insertCustomer(c *Customer) error
	getCustomer(username string) (*Customer, bool)
	updateCustomer(username, name, address string, card int64) error
	setCustomerStatus(username, status string) error
	customers() []Customer

	insertArticle(a *Article) error
	getArticle(code int64) (*Article, bool)
	updateArticle(code int64, name string, price float64) error
	setArticleStock(code int64, from, to string) error
	setArticleStockByID(id int64, from, to string) error
	articles() []Article

	insertGuide(g *Guide) error
	guides() []Guide

	close()
}

// Store is the local store adapter of one node. All replicated entities are
// mutated only through it, either by the CLI (initiator apply) or by the
// request router (participant apply).
type Store struct {
	nodeID int
	eng    engine
	log    *LogManager
}

// Open builds the store for the configured backend.
func Open(nodeID int) (*Store, error) {
	res := &Store{nodeID: nodeID}
	switch configs.StorageType {
	case configs.MemoryStorage:
		res.eng = newMemStore()
	case configs.PostgreSQL:
		db, err := newSQLStore()
		if err != nil {
			return nil, err
		}
		res.eng = db
	case configs.MongoDB:
		mdb, err := newMongoStore(nodeID)
		if err != nil {
			return nil, err
		}
		res.eng = mdb
	default:
		return nil, utils.StoreError("unknown storage type %q", configs.StorageType)
	}
	res.log = NewLogManager(strconv.Itoa(nodeID))
	return res, nil
}

func (s *Store) Close() {
	s.log.Close()
	s.eng.close()
}

// LogMutation appends the decided command string to the redo log before it
// is applied.
func (s *Store) LogMutation(command string) {
	s.log.Append(command)
}

/* Typed mutations. Each maps to one statement of the relational schema. */

func (s *Store) CreateCustomer(username, name, address string, card int64) error {
	c := &Customer{Username: username, Name: name, Address: address, Card: card,
		Status: configs.CustomerActive}
	return s.eng.insertCustomer(c)
}

func (s *Store) UpdateCustomer(username, name, address string, card int64) error {
	return s.eng.updateCustomer(username, name, address, card)
}

func (s *Store) ActivateCustomer(username string) error {
	return s.eng.setCustomerStatus(username, configs.CustomerActive)
}

func (s *Store) DeactivateCustomer(username string) error {
	return s.eng.setCustomerStatus(username, configs.CustomerInactive)
}

func (s *Store) CreateArticle(code int64, name string, price float64, branchID int) error {
	a := &Article{BranchID: branchID, Code: code, Name: name, Price: price,
		Stock: configs.ArticleAvailable}
	return s.eng.insertArticle(a)
}

func (s *Store) UpdateArticle(code int64, name string, price float64) error {
	return s.eng.updateArticle(code, name, price)
}

func (s *Store) RestockArticle(code int64) error {
	return s.eng.setArticleStock(code, configs.ArticleOutOfStock, configs.ArticleAvailable)
}

func (s *Store) DeactivateArticle(code int64) error {
	return s.eng.setArticleStock(code, configs.ArticleAvailable, configs.ArticleOutOfStock)
}

// CreateGuide inserts the shipping guide and flips the referenced article to
// out-of-stock in the same call; a guide always consumes the unit it ships.
func (s *Store) CreateGuide(customerID, articleID int64, branchID int, serial int64, amount float64, purchaseTS string) error {
	g := &Guide{CustomerID: customerID, ArticleID: articleID, BranchID: branchID,
		Serial: serial, Amount: amount, PurchaseTS: purchaseTS}
	if err := s.eng.insertGuide(g); err != nil {
		return err
	}
	return s.eng.setArticleStockByID(articleID, configs.ArticleAvailable, configs.ArticleOutOfStock)
}

/* Queries used by the coordination core and the CLI. */

func (s *Store) CustomerByUsername(username string) (*Customer, bool) {
	return s.eng.getCustomer(username)
}

func (s *Store) ArticleByCode(code int64) (*Article, bool) {
	return s.eng.getArticle(code)
}

func (s *Store) CustomerExists(username string) bool {
	_, ok := s.eng.getCustomer(username)
	return ok
}

func (s *Store) CodeExists(code int64) bool {
	_, ok := s.eng.getArticle(code)
	return ok
}

func (s *Store) CustomerActive(username string) bool {
	c, ok := s.eng.getCustomer(username)
	return ok && c.Status == configs.CustomerActive
}

func (s *Store) ArticleAvailable(code int64) bool {
	a, ok := s.eng.getArticle(code)
	return ok && a.Stock == configs.ArticleAvailable
}

func (s *Store) CardInUse(card int64) bool {
	for _, c := range s.eng.customers() {
		if c.Card == card {
			return true
		}
	}
	return false
}

func (s *Store) Customers() []Customer { return s.eng.customers() }
func (s *Store) Articles() []Article   { return s.eng.articles() }
func (s *Store) Guides() []Guide       { return s.eng.guides() }
