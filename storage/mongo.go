package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"branchstore/configs"
	"branchstore/utils"
)

// mongoStore is the MongoDB engine. Surrogate ids come from a counters
// collection; unique constraints are enforced with unique indexes created at
// open time.
type mongoStore struct {
	ctx       context.Context
	client    *mongo.Client
	customerC *mongo.Collection
	articleC  *mongo.Collection
	guideC    *mongo.Collection
	counters  *mongo.Collection
}

func newMongoStore(nodeID int) (*mongoStore, error) {
	c := &mongoStore{ctx: context.Background()}
	var err error
	c.client, err = mongo.Connect(c.ctx, options.Client().ApplyURI(configs.MongoDBLink))
	if err != nil {
		return nil, utils.StoreError("unable to connect to mongodb: %v", err)
	}
	if err = c.client.Ping(c.ctx, readpref.Primary()); err != nil {
		return nil, utils.StoreError("mongodb unreachable: %v", err)
	}
	db := c.client.Database(fmt.Sprintf("branchstore%d", nodeID))
	c.customerC = db.Collection("CLIENTE")
	c.articleC = db.Collection("ARTICULO")
	c.guideC = db.Collection("GUIA_ENVIO")
	c.counters = db.Collection("COUNTERS")
	for col, keys := range map[*mongo.Collection][]string{
		c.customerC: {"usuario", "tarjeta"},
		c.articleC:  {"codigo"},
		c.guideC:    {"serie"},
	} {
		for _, key := range keys {
			_, err = col.Indexes().CreateOne(c.ctx, mongo.IndexModel{
				Keys:    bson.D{{Key: key, Value: 1}},
				Options: options.Index().SetUnique(true),
			})
			if err != nil {
				return nil, utils.StoreError("index init failed: %v", err)
			}
		}
	}
	return c, nil
}

func (c *mongoStore) nextID(name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := c.counters.FindOneAndUpdate(c.ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, utils.StoreError("id allocation failed: %v", err)
	}
	return doc.Seq, nil
}

func (c *mongoStore) insertCustomer(row *Customer) error {
	id, err := c.nextID("cliente")
	if err != nil {
		return err
	}
	row.ID = id
	if _, err = c.customerC.InsertOne(c.ctx, row); err != nil {
		return utils.StoreError("insert customer: %v", err)
	}
	return nil
}

func (c *mongoStore) getCustomer(username string) (*Customer, bool) {
	row := &Customer{}
	err := c.customerC.FindOne(c.ctx, bson.M{"usuario": username}).Decode(row)
	if err != nil {
		return nil, false
	}
	return row, true
}

func (c *mongoStore) updateCustomer(username, name, address string, card int64) error {
	res, err := c.customerC.UpdateOne(c.ctx, bson.M{"usuario": username},
		bson.M{"$set": bson.M{"nombre": name, "direccion": address, "tarjeta": card}})
	if err != nil {
		return utils.StoreError("update customer: %v", err)
	}
	if res.MatchedCount == 0 {
		return utils.StoreError("unknown customer %q", username)
	}
	return nil
}

func (c *mongoStore) setCustomerStatus(username, status string) error {
	res, err := c.customerC.UpdateOne(c.ctx, bson.M{"usuario": username},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return utils.StoreError("set customer status: %v", err)
	}
	if res.MatchedCount == 0 {
		return utils.StoreError("unknown customer %q", username)
	}
	return nil
}

func (c *mongoStore) customers() []Customer {
	cur, err := c.customerC.Find(c.ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "id_cliente", Value: 1}}))
	if err != nil {
		return nil
	}
	res := make([]Customer, 0)
	_ = cur.All(c.ctx, &res)
	return res
}

func (c *mongoStore) insertArticle(row *Article) error {
	id, err := c.nextID("articulo")
	if err != nil {
		return err
	}
	row.ID = id
	if _, err = c.articleC.InsertOne(c.ctx, row); err != nil {
		return utils.StoreError("insert article: %v", err)
	}
	return nil
}

func (c *mongoStore) getArticle(code int64) (*Article, bool) {
	row := &Article{}
	err := c.articleC.FindOne(c.ctx, bson.M{"codigo": code}).Decode(row)
	if err != nil {
		return nil, false
	}
	return row, true
}

func (c *mongoStore) updateArticle(code int64, name string, price float64) error {
	res, err := c.articleC.UpdateOne(c.ctx, bson.M{"codigo": code},
		bson.M{"$set": bson.M{"nombre": name, "precio": price}})
	if err != nil {
		return utils.StoreError("update article: %v", err)
	}
	if res.MatchedCount == 0 {
		return utils.StoreError("unknown article code %v", code)
	}
	return nil
}

func (c *mongoStore) setArticleStock(code int64, from, to string) error {
	_, err := c.articleC.UpdateOne(c.ctx, bson.M{"codigo": code, "stock": from},
		bson.M{"$set": bson.M{"stock": to}})
	if err != nil {
		return utils.StoreError("set article stock: %v", err)
	}
	return nil
}

func (c *mongoStore) setArticleStockByID(id int64, from, to string) error {
	_, err := c.articleC.UpdateOne(c.ctx, bson.M{"id_articulo": id, "stock": from},
		bson.M{"$set": bson.M{"stock": to}})
	if err != nil {
		return utils.StoreError("set article stock: %v", err)
	}
	return nil
}

func (c *mongoStore) articles() []Article {
	cur, err := c.articleC.Find(c.ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "id_articulo", Value: 1}}))
	if err != nil {
		return nil
	}
	res := make([]Article, 0)
	_ = cur.All(c.ctx, &res)
	return res
}

func (c *mongoStore) insertGuide(row *Guide) error {
	id, err := c.nextID("guia")
	if err != nil {
		return err
	}
	row.ID = id
	if _, err = c.guideC.InsertOne(c.ctx, row); err != nil {
		return utils.StoreError("insert guide: %v", err)
	}
	return nil
}

func (c *mongoStore) guides() []Guide {
	cur, err := c.guideC.Find(c.ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "id_guia", Value: 1}}))
	if err != nil {
		return nil
	}
	res := make([]Guide, 0)
	_ = cur.All(c.ctx, &res)
	return res
}

func (c *mongoStore) close() {
	_ = c.client.Disconnect(c.ctx)
}
