package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

// CognitoAPI is the subset of the Cognito client used by CognitoDirectory.
type CognitoAPI interface {
	AdminGetUser(ctx context.Context, params *cognitoidentityprovider.AdminGetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error)
}

// CognitoDirectory resolves owner emails from a Cognito user pool. Owner IDs
// are the pool usernames.
type CognitoDirectory struct {
	client     CognitoAPI
	userPoolID string
}

// NewCognitoDirectory creates a new CognitoDirectory.
func NewCognitoDirectory(client CognitoAPI, userPoolID string) *CognitoDirectory {
	return &CognitoDirectory{client: client, userPoolID: userPoolID}
}

// EmailFor returns the email attribute of the user.
func (d *CognitoDirectory) EmailFor(ctx context.Context, ownerID string) (string, error) {
	out, err := d.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(ownerID),
	})
	if err != nil {
		return "", fmt.Errorf("get user %s: %w", ownerID, err)
	}

	for _, attr := range out.UserAttributes {
		if aws.ToString(attr.Name) == "email" {
			email := aws.ToString(attr.Value)
			if email != "" {
				return email, nil
			}
			break
		}
	}
	return "", fmt.Errorf("user %s: %w", ownerID, ErrNoEmail)
}
