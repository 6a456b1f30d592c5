// Package mongodb stores the catalog and orders as MongoDB documents, using
// the same collection layout as the first version of the shop ("product",
// "order").
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/ariefcatur/sepatuku/internal/orders"
)

const defaultDatabase = "sepatuku"

type sizeDoc struct {
	Size  int `bson:"size"`
	Stock int `bson:"stock"`
}

type productDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Price       int64              `bson:"price"`
	Image       string             `bson:"image"`
	Brand       string             `bson:"brand"`
	Category    string             `bson:"category"`
	InStock     bool               `bson:"in_stock"`
	Sizes       []sizeDoc          `bson:"sizes"`
}

type orderItemDoc struct {
	ProductID string `bson:"product_id"`
	Title     string `bson:"title"`
	Price     int64  `bson:"price"`
	Quantity  int    `bson:"quantity"`
	Image     string `bson:"image,omitempty"`
	Size      int    `bson:"size"`
}

type customerDoc struct {
	Name       string `bson:"name"`
	Email      string `bson:"email"`
	Phone      string `bson:"phone"`
	Address    string `bson:"address"`
	City       string `bson:"city,omitempty"`
	PostalCode string `bson:"postal_code,omitempty"`
}

type orderDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Items         []orderItemDoc     `bson:"items"`
	Total         int64              `bson:"total"`
	PaymentMethod string             `bson:"payment_method"`
	Status        string             `bson:"status"`
	Customer      customerDoc        `bson:"customer"`
	CreatedAt     time.Time          `bson:"created_at"`
}

type Store struct {
	client   *mongo.Client
	products *mongo.Collection
	orders   *mongo.Collection
}

// Connect dials uri and pings the primary. The database name comes from the
// URI path, defaulting to "sepatuku".
func Connect(ctx context.Context, uri string) (*Store, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, errors.Wrap(err, "parse mongodb uri")
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = defaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongodb")
	}
	db := client.Database(dbName)
	return &Store{
		client:   client,
		products: db.Collection("product"),
		orders:   db.Collection("order"),
	}, nil
}

func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

func wrap(err error, msg string) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s: %w: %w", msg, orders.ErrStoreUnavailable, err)
	}
	return errors.Wrap(err, msg)
}

func (s *Store) FindProduct(ctx context.Context, id string) (orders.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return orders.Product{}, orders.ErrProductNotFound
	}
	var doc productDoc
	err = s.products.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, wrap(err, "find product")
	}
	return doc.toProduct(), nil
}

// DecrementSizeStock matches the size element only when it still has enough
// stock and decrements it through the positional operator in one update.
func (s *Store) DecrementSizeStock(ctx context.Context, id string, size, qty int) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	filter := bson.M{
		"_id":   oid,
		"sizes": bson.M{"$elemMatch": bson.M{"size": size, "stock": bson.M{"$gte": qty}}},
	}
	res, err := s.products.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"sizes.$.stock": -qty}})
	if err != nil {
		return false, wrap(err, "decrement size stock")
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) SetInStock(ctx context.Context, id string, inStock bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.products.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"in_stock": inStock}}); err != nil {
		return wrap(err, "set in_stock")
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]orders.Product, error) {
	cur, err := s.products.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, wrap(err, "list products")
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap(err, "decode products")
	}
	out := make([]orders.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toProduct())
	}
	return out, nil
}

func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	n, err := s.products.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrap(err, "count products")
	}
	return n, nil
}

func (s *Store) InsertProduct(ctx context.Context, p orders.Product) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	doc := productDoc{
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Brand:       p.Brand,
		Category:    p.Category,
		InStock:     p.InStock,
		Sizes:       make([]sizeDoc, 0, len(p.Sizes)),
	}
	if oid, err := primitive.ObjectIDFromHex(p.ID); err == nil {
		doc.ID = oid
	}
	for _, sz := range p.Sizes {
		doc.Sizes = append(doc.Sizes, sizeDoc{Size: sz.Size, Stock: sz.Stock})
	}
	res, err := s.products.InsertOne(ctx, doc)
	if err != nil {
		return "", wrap(err, "insert product")
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *Store) InsertOrder(ctx context.Context, o orders.Order) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	doc := orderDoc{
		Items:         make([]orderItemDoc, 0, len(o.Items)),
		Total:         o.Total,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		Customer:      customerDoc(o.Customer),
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		doc.Items = append(doc.Items, orderItemDoc(it))
	}
	res, err := s.orders.InsertOne(ctx, doc)
	if err != nil {
		return "", wrap(err, "insert order")
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	cur, err := s.orders.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, wrap(err, "list orders")
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap(err, "decode orders")
	}
	out := make([]orders.Order, 0, len(docs))
	for _, d := range docs {
		o := orders.Order{
			ID:            d.ID.Hex(),
			Items:         make([]orders.OrderItem, 0, len(d.Items)),
			Total:         d.Total,
			PaymentMethod: orders.PaymentMethod(d.PaymentMethod),
			Status:        orders.Status(d.Status),
			Customer:      orders.Customer(d.Customer),
			CreatedAt:     d.CreatedAt,
		}
		for _, it := range d.Items {
			o.Items = append(o.Items, orders.OrderItem(it))
		}
		out = append(out, o)
	}
	return out, nil
}

func (d productDoc) toProduct() orders.Product {
	p := orders.Product{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Image:       d.Image,
		Brand:       d.Brand,
		Category:    d.Category,
		InStock:     d.InStock,
		Sizes:       make([]orders.SizeStock, 0, len(d.Sizes)),
	}
	for _, s := range d.Sizes {
		p.Sizes = append(p.Sizes, orders.SizeStock{Size: s.Size, Stock: s.Stock})
	}
	return p
}
