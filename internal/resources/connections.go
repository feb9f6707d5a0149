package resources

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codestarconnections"
)

// ResolveConnectionARN finds the source connection with the given display
// name. When the listing itself fails, the constructed ARN form is returned
// alongside the error so provisioning can still be attempted. A listing that
// succeeds without the name returns an empty ARN with NotFoundError.
func (c *Client) ResolveConnectionARN(ctx context.Context, connectionName string) (string, error) {
	fallback := fmt.Sprintf("arn:aws:codestar-connections:%s:%s:connection/%s", c.region, c.accountID, connectionName)

	var nextToken *string
	for {
		opCtx, cancel := c.opCtx(ctx)
		out, err := c.connections.ListConnections(opCtx, &codestarconnections.ListConnectionsInput{NextToken: nextToken})
		cancel()
		if err != nil {
			return fallback, wrapAWSErr(err, "list", "source connections", connectionName)
		}

		for _, conn := range out.Connections {
			if aws.ToString(conn.ConnectionName) == connectionName {
				return aws.ToString(conn.ConnectionArn), nil
			}
		}

		if out.NextToken == nil {
			return "", notFound("source connection", connectionName)
		}
		nextToken = out.NextToken
	}
}
