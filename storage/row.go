package storage

// The replicated entities. Status and stock hold the wire literals from
// configs (Activo/Inactivo, Disponible/Agotado): peers byte-compare command
// strings, so the stored values keep the same spelling.

type Customer struct {
	ID       int64  `json:"id_cliente" bson:"id_cliente"`
	Username string `json:"usuario" bson:"usuario"`
	Name     string `json:"nombre" bson:"nombre"`
	Address  string `json:"direccion" bson:"direccion"`
	Card     int64  `json:"tarjeta" bson:"tarjeta"`
	Status   string `json:"status" bson:"status"`
}

type Article struct {
	ID       int64   `json:"id_articulo" bson:"id_articulo"`
	BranchID int     `json:"id_sucursal" bson:"id_sucursal"`
	Code     int64   `json:"codigo" bson:"codigo"`
	Name     string  `json:"nombre" bson:"nombre"`
	Price    float64 `json:"precio" bson:"precio"`
	Stock    string  `json:"stock" bson:"stock"`
}

type Guide struct {
	ID         int64   `json:"id_guia" bson:"id_guia"`
	CustomerID int64   `json:"id_cliente" bson:"id_cliente"`
	ArticleID  int64   `json:"id_articulo" bson:"id_articulo"`
	BranchID   int     `json:"id_sucursal" bson:"id_sucursal"`
	Serial     int64   `json:"serie" bson:"serie"`
	Amount     float64 `json:"monto_total" bson:"monto_total"`
	PurchaseTS string  `json:"fecha_compra" bson:"fecha_compra"`
}
