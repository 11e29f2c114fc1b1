package storage

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"branchstore/configs"
	"branchstore/utils"
)

// sqlStore is the PostgreSQL engine. Every statement autocommits, so an
// applied mutation survives a crash of the handler that wrote it. The
// engine's row-level locking serializes the UI task against the request
// handlers; no in-process latching is needed here.
type sqlStore struct {
	ctx  context.Context
	pool *pgxpool.Pool
}

func newSQLStore() (*sqlStore, error) {
	c := &sqlStore{ctx: context.Background()}
	config, err := pgxpool.ParseConfig(configs.PostgreSQLLink)
	if err != nil {
		return nil, utils.StoreError("bad postgres link: %v", err)
	}
	c.pool, err = pgxpool.ConnectConfig(c.ctx, config)
	if err != nil {
		return nil, utils.StoreError("unable to connect to database: %v", err)
	}
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS CLIENTE (
			id_cliente BIGSERIAL PRIMARY KEY,
			usuario TEXT NOT NULL UNIQUE,
			nombre TEXT NOT NULL,
			direccion TEXT NOT NULL,
			tarjeta BIGINT NOT NULL UNIQUE,
			status TEXT NOT NULL CHECK (status IN ('Activo', 'Inactivo')))`,
		`CREATE TABLE IF NOT EXISTS ARTICULO (
			id_articulo BIGSERIAL PRIMARY KEY,
			id_sucursal INT NOT NULL,
			codigo BIGINT NOT NULL UNIQUE,
			nombre TEXT NOT NULL,
			precio DOUBLE PRECISION NOT NULL,
			stock TEXT NOT NULL CHECK (stock IN ('Disponible', 'Agotado')))`,
		`CREATE TABLE IF NOT EXISTS GUIA_ENVIO (
			id_guia BIGSERIAL PRIMARY KEY,
			id_cliente BIGINT NOT NULL REFERENCES CLIENTE(id_cliente),
			id_articulo BIGINT NOT NULL REFERENCES ARTICULO(id_articulo),
			id_sucursal INT NOT NULL,
			serie BIGINT NOT NULL UNIQUE,
			monto_total DOUBLE PRECISION NOT NULL,
			fecha_compra TEXT NOT NULL)`,
	} {
		if _, err = c.pool.Exec(c.ctx, ddl); err != nil {
			return nil, utils.StoreError("schema init failed: %v", err)
		}
	}
	return c, nil
}

func (c *sqlStore) insertCustomer(row *Customer) error {
	err := c.pool.QueryRow(c.ctx,
		"INSERT INTO CLIENTE (usuario, nombre, direccion, tarjeta, status) VALUES ($1, $2, $3, $4, $5) RETURNING id_cliente",
		row.Username, row.Name, row.Address, row.Card, row.Status).Scan(&row.ID)
	if err != nil {
		return utils.StoreError("insert customer: %v", err)
	}
	return nil
}

func (c *sqlStore) getCustomer(username string) (*Customer, bool) {
	row := &Customer{}
	err := c.pool.QueryRow(c.ctx,
		"SELECT id_cliente, usuario, nombre, direccion, tarjeta, status FROM CLIENTE WHERE usuario = $1",
		username).Scan(&row.ID, &row.Username, &row.Name, &row.Address, &row.Card, &row.Status)
	if err != nil {
		return nil, false
	}
	return row, true
}

func (c *sqlStore) updateCustomer(username, name, address string, card int64) error {
	tag, err := c.pool.Exec(c.ctx,
		"UPDATE CLIENTE SET nombre = $1, direccion = $2, tarjeta = $3 WHERE usuario = $4",
		name, address, card, username)
	if err != nil {
		return utils.StoreError("update customer: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.StoreError("unknown customer %q", username)
	}
	return nil
}

func (c *sqlStore) setCustomerStatus(username, status string) error {
	tag, err := c.pool.Exec(c.ctx,
		"UPDATE CLIENTE SET status = $1 WHERE usuario = $2", status, username)
	if err != nil {
		return utils.StoreError("set customer status: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.StoreError("unknown customer %q", username)
	}
	return nil
}

func (c *sqlStore) customers() []Customer {
	rows, err := c.pool.Query(c.ctx,
		"SELECT id_cliente, usuario, nombre, direccion, tarjeta, status FROM CLIENTE ORDER BY id_cliente")
	if err != nil {
		return nil
	}
	defer rows.Close()
	res := make([]Customer, 0)
	for rows.Next() {
		var row Customer
		if err = rows.Scan(&row.ID, &row.Username, &row.Name, &row.Address, &row.Card, &row.Status); err == nil {
			res = append(res, row)
		}
	}
	return res
}

func (c *sqlStore) insertArticle(row *Article) error {
	err := c.pool.QueryRow(c.ctx,
		"INSERT INTO ARTICULO (id_sucursal, codigo, nombre, precio, stock) VALUES ($1, $2, $3, $4, $5) RETURNING id_articulo",
		row.BranchID, row.Code, row.Name, row.Price, row.Stock).Scan(&row.ID)
	if err != nil {
		return utils.StoreError("insert article: %v", err)
	}
	return nil
}

func (c *sqlStore) getArticle(code int64) (*Article, bool) {
	row := &Article{}
	err := c.pool.QueryRow(c.ctx,
		"SELECT id_articulo, id_sucursal, codigo, nombre, precio, stock FROM ARTICULO WHERE codigo = $1",
		code).Scan(&row.ID, &row.BranchID, &row.Code, &row.Name, &row.Price, &row.Stock)
	if err != nil {
		return nil, false
	}
	return row, true
}

func (c *sqlStore) updateArticle(code int64, name string, price float64) error {
	tag, err := c.pool.Exec(c.ctx,
		"UPDATE ARTICULO SET nombre = $1, precio = $2 WHERE codigo = $3", name, price, code)
	if err != nil {
		return utils.StoreError("update article: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return utils.StoreError("unknown article code %v", code)
	}
	return nil
}

func (c *sqlStore) setArticleStock(code int64, from, to string) error {
	_, err := c.pool.Exec(c.ctx,
		"UPDATE ARTICULO SET stock = $1 WHERE codigo = $2 AND stock = $3", to, code, from)
	if err != nil {
		return utils.StoreError("set article stock: %v", err)
	}
	return nil
}

func (c *sqlStore) setArticleStockByID(id int64, from, to string) error {
	_, err := c.pool.Exec(c.ctx,
		"UPDATE ARTICULO SET stock = $1 WHERE id_articulo = $2 AND stock = $3", to, id, from)
	if err != nil {
		return utils.StoreError("set article stock: %v", err)
	}
	return nil
}

func (c *sqlStore) articles() []Article {
	rows, err := c.pool.Query(c.ctx,
		"SELECT id_articulo, id_sucursal, codigo, nombre, precio, stock FROM ARTICULO ORDER BY id_articulo")
	if err != nil {
		return nil
	}
	defer rows.Close()
	res := make([]Article, 0)
	for rows.Next() {
		var row Article
		if err = rows.Scan(&row.ID, &row.BranchID, &row.Code, &row.Name, &row.Price, &row.Stock); err == nil {
			res = append(res, row)
		}
	}
	return res
}

func (c *sqlStore) insertGuide(row *Guide) error {
	err := c.pool.QueryRow(c.ctx,
		"INSERT INTO GUIA_ENVIO (id_cliente, id_articulo, id_sucursal, serie, monto_total, fecha_compra) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id_guia",
		row.CustomerID, row.ArticleID, row.BranchID, row.Serial, row.Amount, row.PurchaseTS).Scan(&row.ID)
	if err != nil {
		return utils.StoreError("insert guide: %v", err)
	}
	return nil
}

func (c *sqlStore) guides() []Guide {
	rows, err := c.pool.Query(c.ctx,
		"SELECT id_guia, id_cliente, id_articulo, id_sucursal, serie, monto_total, fecha_compra FROM GUIA_ENVIO ORDER BY id_guia")
	if err != nil {
		return nil
	}
	defer rows.Close()
	res := make([]Guide, 0)
	for rows.Next() {
		var row Guide
		if err = rows.Scan(&row.ID, &row.CustomerID, &row.ArticleID, &row.BranchID, &row.Serial, &row.Amount, &row.PurchaseTS); err == nil {
			res = append(res, row)
		}
	}
	return res
}

func (c *sqlStore) close() {
	c.pool.Close()
}
