package user

import (
	"context"
	"errors"
	"fmt"

	"user_api/internal/apperror"
	"user_api/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

// DynamoAPI is the part of *dynamodb.Client the repository uses.
type DynamoAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type UserRepositoryInterface interface {
	List(ctx context.Context) ([]NameOnly, error)
	FindByName(ctx context.Context, name string) (*Profile, error)
	Exists(ctx context.Context, name string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, id string, req *UserRequest) (*Profile, error)
	Remove(ctx context.Context, id string) error
}

type UserRepository struct {
	client    DynamoAPI
	table     string
	nameIndex string
}

func NewUserRepository(client DynamoAPI, table, nameIndex string) UserRepositoryInterface {
	return &UserRepository{
		client:    client,
		table:     table,
		nameIndex: nameIndex,
	}
}

// List scans the whole table projected to userName, following the
// continuation token until the scan is exhausted.
func (r *UserRepository) List(ctx context.Context) ([]NameOnly, error) {
	defer observeStorage("scan")()

	proj := expression.NamesList(expression.Name(AttrUserName))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return nil, apperror.StorageFault("Unable to build scan", err)
	}

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.table),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
	})

	users := []NameOnly{}
	pages := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			logrus.WithError(err).Error("Failed to scan users")
			return nil, storageFault("scan", "Unable to scan", err)
		}
		pages++

		var batch []NameOnly
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, apperror.StorageFault("Unable to decode scan page", err)
		}
		users = append(users, batch...)
	}

	logrus.WithFields(logrus.Fields{
		"count": len(users),
		"pages": pages,
	}).Info("Scan succeeded")

	return users, nil
}

// FindByName returns the redacted record for name or a NotFound error.
func (r *UserRepository) FindByName(ctx context.Context, name string) (*Profile, error) {
	user, err := r.queryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if user == nil {
		logrus.WithField("userName", name).Warn("User not found")
		return nil, apperror.NotFound(fmt.Sprintf("No user by the name: %s", name))
	}
	return user.Redact(), nil
}

// Exists returns the full stored record for name, or nil when there is none.
// The result includes the id and password hash and must not be sent to clients.
func (r *UserRepository) Exists(ctx context.Context, name string) (*User, error) {
	return r.queryByName(ctx, name)
}

// Insert writes the record unconditionally.
func (r *UserRepository) Insert(ctx context.Context, user *User) error {
	defer observeStorage("put")()

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return apperror.StorageFault(fmt.Sprintf("Unable to add user: %s", user.UserName), err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		logrus.WithError(err).WithField("userName", user.UserName).Error("Failed to put user")
		return storageFault("put", fmt.Sprintf("Unable to add user: %s", user.UserName), err)
	}

	logrus.WithFields(logrus.Fields{
		"userId":   user.UserID,
		"userName": user.UserName,
	}).Info("PutItem succeeded")
	return nil
}

// Update replaces name, first name, last name and password of the record
// keyed by id. Optional fields missing from req are removed. The write is
// conditional on the record existing.
func (r *UserRepository) Update(ctx context.Context, id string, req *UserRequest) (*Profile, error) {
	defer observeStorage("update")()

	update := expression.Set(expression.Name(AttrUserName), expression.Value(req.UserName))
	update = setOrRemove(update, AttrUserFirstName, req.UserFirstName)
	update = setOrRemove(update, AttrUserLastName, req.UserLastName)
	update = setOrRemove(update, AttrUserPassword, req.UserPassword)

	cond := expression.AttributeExists(expression.Name(AttrUserID))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, apperror.StorageFault("Unable to build update", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       idKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, apperror.NotFound(fmt.Sprintf("user id: %s does NOT exist.", id))
		}
		logrus.WithError(err).WithField("userId", id).Error("Failed to update user")
		return nil, storageFault("update", "Unable to update user", err)
	}

	var updated User
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return nil, apperror.StorageFault("Unable to decode updated user", err)
	}

	logrus.WithFields(logrus.Fields{
		"userId":   id,
		"userName": updated.UserName,
	}).Info("UpdateItem succeeded")

	return updated.Redact(), nil
}

// Remove deletes the record keyed by id. Deleting a missing id succeeds.
func (r *UserRepository) Remove(ctx context.Context, id string) error {
	defer observeStorage("delete")()

	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       idKey(id),
	})
	if err != nil {
		logrus.WithError(err).WithField("userId", id).Error("Failed to delete user")
		return storageFault("delete", fmt.Sprintf("Unable to delete user: %s", id), err)
	}

	logrus.WithField("userId", id).Info("DeleteItem succeeded")
	return nil
}

func (r *UserRepository) queryByName(ctx context.Context, name string) (*User, error) {
	defer observeStorage("query")()

	keyCond := expression.Key(AttrUserName).Equal(expression.Value(name))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperror.StorageFault("Unable to build query", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(r.nameIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		logrus.WithError(err).WithField("userName", name).Error("Failed to query users by name")
		return nil, storageFault("query", "Unable to query", err)
	}

	if len(out.Items) == 0 {
		return nil, nil
	}

	var user User
	if err := attributevalue.UnmarshalMap(out.Items[0], &user); err != nil {
		return nil, apperror.StorageFault("Unable to decode user", err)
	}
	return &user, nil
}

func setOrRemove(update expression.UpdateBuilder, attr string, value *string) expression.UpdateBuilder {
	if value == nil {
		return update.Remove(expression.Name(attr))
	}
	return update.Set(expression.Name(attr), expression.Value(*value))
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrUserID: &types.AttributeValueMemberS{Value: id},
	}
}

func storageFault(op, msg string, err error) error {
	if observability.GlobalMetrics != nil {
		observability.GlobalMetrics.StorageErrorsTotal.WithLabelValues(op).Inc()
	}
	return apperror.StorageFault(msg, err)
}

// observeStorage records the duration of one storage operation.
func observeStorage(op string) func() {
	if observability.GlobalMetrics == nil {
		return func() {}
	}
	timer := observability.GlobalMetrics.StartStorageTimer(op)
	return func() { timer.ObserveDuration() }
}
