// Package dbtest provides an in-memory DatabaseHelper for tests. It supports
// the subset of the query language the repositories use: equality filters on
// top-level or dotted fields (nil matches missing), $in, $nin, $ne and
// $exists, and $set / $unset updates of top-level fields.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rvi-ar/casos-api/databases"
)

// Database is an in-memory databases.DatabaseHelper
type Database struct {
	mu          sync.Mutex
	collections map[string][]bson.M
	failures    map[string]*failure
}

type failure struct {
	err   error
	after int
	calls int
}

// New returns an empty in-memory database
func New() *Database {
	return &Database{
		collections: make(map[string][]bson.M),
		failures:    make(map[string]*failure),
	}
}

// FailOn makes every call of op ("insertOne", "find", ...) on the collection
// return err.
func (d *Database) FailOn(collection, op string, err error) {
	d.FailAfter(collection, op, 0, err)
}

// FailAfter lets the first n calls of op succeed and fails the rest with err.
func (d *Database) FailAfter(collection, op string, n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[collection+"."+op] = &failure{err: err, after: n}
}

// Len returns the number of documents stored in a collection
func (d *Database) Len(collection string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.collections[collection])
}

// Collection implements databases.DatabaseHelper
func (d *Database) Collection(name string) databases.CollectionHelper {
	return &collection{db: d, name: name}
}

// Client implements databases.DatabaseHelper
func (d *Database) Client() databases.ClientHelper {
	return client{db: d}
}

func (d *Database) checkFailure(name, op string) error {
	f, ok := d.failures[name+"."+op]
	if !ok {
		return nil
	}
	if f.calls < f.after {
		f.calls++
		return nil
	}
	return f.err
}

type client struct {
	db *Database
}

func (c client) Database(string) databases.DatabaseHelper { return c.db }
func (c client) Connect(context.Context) error            { return nil }
func (c client) Disconnect(context.Context) error         { return nil }

type collection struct {
	db   *Database
	name string
}

func (c *collection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) databases.SingleResultHelper {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkFailure(c.name, "findOne"); err != nil {
		return singleResult{err: err}
	}
	f, err := toM(filter)
	if err != nil {
		return singleResult{err: err}
	}
	for _, doc := range c.db.collections[c.name] {
		if matches(doc, f) {
			return singleResult{doc: doc}
		}
	}
	return singleResult{err: mongo.ErrNoDocuments}
}

func (c *collection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (databases.CursorHelper, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkFailure(c.name, "find"); err != nil {
		return nil, err
	}
	f, err := toM(filter)
	if err != nil {
		return nil, err
	}
	var out []bson.M
	for _, doc := range c.db.collections[c.name] {
		if matches(doc, f) {
			out = append(out, doc)
		}
	}
	return &cursor{docs: out}, nil
}

func (c *collection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkFailure(c.name, "insertOne"); err != nil {
		return nil, err
	}
	doc, err := toM(document)
	if err != nil {
		return nil, err
	}
	id, ok := doc["_id"]
	if !ok || id == nil {
		id = primitive.NewObjectID()
		doc["_id"] = id
	}
	for _, existing := range c.db.collections[c.name] {
		if reflect.DeepEqual(existing["_id"], id) {
			return nil, fmt.Errorf("E11000 duplicate key error collection: %s", c.name)
		}
	}
	c.db.collections[c.name] = append(c.db.collections[c.name], doc)
	return insertResult{id: id}, nil
}

func (c *collection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (int64, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkFailure(c.name, "replaceOne"); err != nil {
		return 0, err
	}
	f, err := toM(filter)
	if err != nil {
		return 0, err
	}
	next, err := toM(replacement)
	if err != nil {
		return 0, err
	}
	docs := c.db.collections[c.name]
	for i, doc := range docs {
		if matches(doc, f) {
			next["_id"] = doc["_id"]
			docs[i] = next
			return 1, nil
		}
	}
	return 0, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (int64, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkFailure(c.name, "updateOne"); err != nil {
		return 0, err
	}
	f, err := toM(filter)
	if err != nil {
		return 0, err
	}
	u, err := toM(update)
	if err != nil {
		return 0, err
	}
	for _, doc := range c.db.collections[c.name] {
		if !matches(doc, f) {
			continue
		}
		for op, arg := range u {
			fields, err := toM(arg)
			if err != nil {
				return 0, err
			}
			switch op {
			case "$set":
				for k, v := range fields {
					doc[k] = v
				}
			case "$unset":
				for k := range fields {
					delete(doc, k)
				}
			default:
				return 0, fmt.Errorf("dbtest: unsupported update operator %s", op)
			}
		}
		return 1, nil
	}
	return 0, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return c.delete(filter, "deleteOne", 1)
}

func (c *collection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return c.delete(filter, "deleteMany", -1)
}

func (c *collection) delete(filter interface{}, op string, limit int) (int64, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkFailure(c.name, op); err != nil {
		return 0, err
	}
	f, err := toM(filter)
	if err != nil {
		return 0, err
	}
	var kept []bson.M
	var deleted int64
	for _, doc := range c.db.collections[c.name] {
		if (limit < 0 || deleted < int64(limit)) && matches(doc, f) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.db.collections[c.name] = kept
	return deleted, nil
}

func (c *collection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if err := c.db.checkFailure(c.name, "countDocuments"); err != nil {
		return 0, err
	}
	f, err := toM(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range c.db.collections[c.name] {
		if matches(doc, f) {
			n++
		}
	}
	return n, nil
}

type singleResult struct {
	doc bson.M
	err error
}

func (s singleResult) Decode(v interface{}) error {
	if s.err != nil {
		return s.err
	}
	b, err := bson.Marshal(s.doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(b, v)
}

type insertResult struct {
	id interface{}
}

func (r insertResult) Decode() interface{} {
	return r.id
}

type cursor struct {
	docs []bson.M
}

func (c *cursor) All(ctx context.Context, results interface{}) error {
	rv := reflect.ValueOf(results)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return errors.New("dbtest: results argument must be a pointer to a slice")
	}
	slice := rv.Elem()
	elemType := slice.Type().Elem()
	out := reflect.MakeSlice(slice.Type(), 0, len(c.docs))
	for _, doc := range c.docs {
		b, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(b, elem.Interface()); err != nil {
			return err
		}
		out = reflect.Append(out, elem.Elem())
	}
	slice.Set(out)
	return nil
}

func (c *cursor) Close(ctx context.Context) error {
	return nil
}

// toM normalizes any marshalable value into a bson.M by round-tripping it
// through the bson codec, so stored values and filter values compare equal.
func toM(v interface{}) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := bson.M{}
	if err := bson.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func normalize(v interface{}) interface{} {
	m, err := toM(bson.M{"v": v})
	if err != nil {
		return v
	}
	return m["v"]
}

func matches(doc bson.M, filter bson.M) bool {
	for k, want := range filter {
		got, present := lookup(doc, k)
		if ops, ok := operatorDoc(want); ok {
			for op, arg := range ops {
				switch op {
				case "$in":
					if !present || !contains(arg, got) {
						return false
					}
				case "$nin":
					if present && contains(arg, got) {
						return false
					}
				case "$ne":
					if present && reflect.DeepEqual(got, normalize(arg)) {
						return false
					}
				case "$exists":
					if b, _ := arg.(bool); b != present {
						return false
					}
				default:
					return false
				}
			}
			continue
		}
		if want == nil {
			if present && got != nil {
				return false
			}
			continue
		}
		if !present || !reflect.DeepEqual(got, normalize(want)) {
			return false
		}
	}
	return true
}

// lookup resolves a field path such as "archivo.ruta" through embedded
// documents
func lookup(doc bson.M, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		var m bson.M
		switch t := cur.(type) {
		case bson.M:
			m = t
		case bson.D:
			m = t.Map()
		default:
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func operatorDoc(v interface{}) (bson.M, bool) {
	var m bson.M
	switch t := v.(type) {
	case bson.M:
		m = t
	case bson.D:
		m = t.Map()
	default:
		return nil, false
	}
	if len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if len(k) == 0 || k[0] != '$' {
			return nil, false
		}
	}
	return m, true
}

func contains(list interface{}, v interface{}) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if reflect.DeepEqual(normalize(rv.Index(i).Interface()), v) {
			return true
		}
	}
	return false
}
