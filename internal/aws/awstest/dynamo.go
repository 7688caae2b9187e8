// Package awstest provides in-memory stand-ins for the AWS clients used
// in unit tests.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a stored DynamoDB item.
type Item = map[string]types.AttributeValue

// Dynamo is an in-memory DynamoDB supporting the single-clause condition
// and SET expressions the stores issue.
type Dynamo struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]Item

	// Errs forces an operation ("PutItem", "GetItem", "UpdateItem",
	// "TransactWriteItems") to fail.
	Errs map[string]error
}

// NewDynamo returns an empty fake. Tables must be declared with Table.
func NewDynamo() *Dynamo {
	return &Dynamo{
		keys:   map[string]string{},
		tables: map[string]map[string]Item{},
		Errs:   map[string]error{},
	}
}

// Table declares a table and its string partition key attribute.
func (d *Dynamo) Table(name, pk string) *Dynamo {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[name] = pk
	if _, ok := d.tables[name]; !ok {
		d.tables[name] = map[string]Item{}
	}
	return d
}

// Seed stores an item without conditions.
func (d *Dynamo) Seed(table string, item Item) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pk, err := d.pkOf(table, item)
	if err != nil {
		panic(err)
	}
	d.tables[table][pk] = clone(item)
}

// Get returns a copy of the stored item, or nil.
func (d *Dynamo) Get(table, pk string) Item {
	d.mu.Lock()
	defer d.mu.Unlock()
	it, ok := d.tables[table][pk]
	if !ok {
		return nil
	}
	return clone(it)
}

// Len returns the number of items in a table.
func (d *Dynamo) Len(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tables[table])
}

func (d *Dynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, _ ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Errs["PutItem"]; err != nil {
		return nil, err
	}
	table := sdkaws.ToString(in.TableName)
	pk, err := d.pkOf(table, in.Item)
	if err != nil {
		return nil, err
	}
	if !eval(sdkaws.ToString(in.ConditionExpression), d.tables[table][pk], in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
	}
	d.tables[table][pk] = clone(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *Dynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, _ ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Errs["GetItem"]; err != nil {
		return nil, err
	}
	table := sdkaws.ToString(in.TableName)
	pk, err := d.pkOf(table, in.Key)
	if err != nil {
		return nil, err
	}
	it, ok := d.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(it)}, nil
}

func (d *Dynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, _ ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Errs["UpdateItem"]; err != nil {
		return nil, err
	}
	table := sdkaws.ToString(in.TableName)
	pk, err := d.pkOf(table, in.Key)
	if err != nil {
		return nil, err
	}
	current := d.tables[table][pk]
	if !eval(sdkaws.ToString(in.ConditionExpression), current, in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
	}

	next := clone(current)
	if next == nil {
		next = clone(in.Key)
	}
	if err := applySet(sdkaws.ToString(in.UpdateExpression), next, in.ExpressionAttributeNames, in.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	d.tables[table][pk] = next
	return &dyn.UpdateItemOutput{Attributes: clone(next)}, nil
}

func (d *Dynamo) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, _ ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.Errs["TransactWriteItems"]; err != nil {
		return nil, err
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, it := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: sdkaws.String("None")}
		p := it.Put
		if p == nil {
			return nil, errors.New("awstest: only Put is supported in transactions")
		}
		table := sdkaws.ToString(p.TableName)
		pk, err := d.pkOf(table, p.Item)
		if err != nil {
			return nil, err
		}
		if !eval(sdkaws.ToString(p.ConditionExpression), d.tables[table][pk], p.ExpressionAttributeNames, p.ExpressionAttributeValues) {
			reasons[i] = types.CancellationReason{Code: sdkaws.String("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             sdkaws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, it := range in.TransactItems {
		table := sdkaws.ToString(it.Put.TableName)
		pk, _ := d.pkOf(table, it.Put.Item)
		d.tables[table][pk] = clone(it.Put.Item)
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (d *Dynamo) pkOf(table string, item Item) (string, error) {
	attr, ok := d.keys[table]
	if !ok {
		return "", fmt.Errorf("awstest: unknown table %q", table)
	}
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("awstest: item has no string %q", attr)
	}
	return v.Value, nil
}

// eval supports "", "attribute_exists(a)", "attribute_not_exists(a)" and
// "a = :v", joined by AND.
func eval(cond string, item Item, names map[string]string, values map[string]types.AttributeValue) bool {
	if strings.TrimSpace(cond) == "" {
		return true
	}
	for _, clause := range strings.Split(cond, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists("):
			attr := resolve(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")"), names)
			if _, ok := item[attr]; ok {
				return false
			}
		case strings.HasPrefix(clause, "attribute_exists("):
			attr := resolve(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_exists("), ")"), names)
			if _, ok := item[attr]; !ok {
				return false
			}
		default:
			lhs, rhs, ok := strings.Cut(clause, "=")
			if !ok {
				panic("awstest: unsupported condition " + clause)
			}
			got, ok := item[resolve(strings.TrimSpace(lhs), names)]
			if !ok || !equal(got, values[strings.TrimSpace(rhs)]) {
				return false
			}
		}
	}
	return true
}

func applySet(expr string, item Item, names map[string]string, values map[string]types.AttributeValue) error {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "SET ") {
		return fmt.Errorf("awstest: unsupported update %q", expr)
	}
	for _, assign := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		lhs, rhs, ok := strings.Cut(assign, "=")
		if !ok {
			return fmt.Errorf("awstest: bad assignment %q", assign)
		}
		v, ok := values[strings.TrimSpace(rhs)]
		if !ok {
			return fmt.Errorf("awstest: missing value %s", rhs)
		}
		item[resolve(strings.TrimSpace(lhs), names)] = v
	}
	return nil
}

func resolve(attr string, names map[string]string) string {
	if strings.HasPrefix(attr, "#") {
		return names[attr]
	}
	return attr
}

func equal(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func clone(it Item) Item {
	if it == nil {
		return nil
	}
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
