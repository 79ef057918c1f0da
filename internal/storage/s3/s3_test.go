package s3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(fmt.Errorf("get object: %w", &types.NoSuchKey{})))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey", Message: "key absent"}))

	assert.False(t, isNotFound(errors.New("NoSuchKey mentioned in passing")))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(&types.NoSuchBucket{}))
}
