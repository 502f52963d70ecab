package user

import (
	"github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"
)

// DynamoDB attribute names of the Users table.
const (
	AttrUserID         = "userId"
	AttrUserName       = "userName"
	AttrUserFirstName  = "userFirstName"
	AttrUserLastName   = "userLastName"
	AttrUserPassword   = "userPassword"
	AttrUserCreateDate = "userCreateDate"
)

// User is the stored record. Password holds a bcrypt hash.
type User struct {
	UserID     string `json:"userId" dynamodbav:"userId"`
	UserName   string `json:"userName" dynamodbav:"userName"`
	FirstName  string `json:"userFirstName,omitempty" dynamodbav:"userFirstName,omitempty"`
	LastName   string `json:"userLastName,omitempty" dynamodbav:"userLastName,omitempty"`
	Password   string `json:"-" dynamodbav:"userPassword,omitempty"`
	CreateDate string `json:"userCreateDate" dynamodbav:"userCreateDate"`
}

// Profile is a User with the id and password removed. It is the only
// record shape that leaves the API.
type Profile struct {
	UserName   string `json:"userName"`
	FirstName  string `json:"userFirstName,omitempty"`
	LastName   string `json:"userLastName,omitempty"`
	CreateDate string `json:"userCreateDate,omitempty"`
}

type NameOnly struct {
	UserName string `json:"userName" dynamodbav:"userName"`
}

// Redact copies the public fields of u into a Profile.
func (u *User) Redact() *Profile {
	p := &Profile{}
	if err := copier.Copy(p, u); err != nil {
		logrus.WithError(err).WithField("userName", u.UserName).Error("Failed to redact user")
		return &Profile{UserName: u.UserName}
	}
	return p
}

// Event is published on the user_events queue after a successful mutation.
type Event struct {
	Type       string `json:"type"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	PrevName   string `json:"prevName,omitempty"`
	OccurredAt string `json:"occurredAt"`
}

const (
	EventCreated = "user.created"
	EventUpdated = "user.updated"
	EventDeleted = "user.deleted"
)

// LoginResult is the payload of a successful login.
type LoginResult struct {
	UserName string
	Token    string
}
