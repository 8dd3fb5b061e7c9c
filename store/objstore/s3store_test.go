/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package objstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

func TestIsNotFoundMatchesNoSuchKey(t *testing.T) {
	if !isNotFound(&s3.NoSuchKey{}) {
		t.Fatalf("s3.NoSuchKey should be treated as not-found")
	}
}

func TestIsNotFoundMatchesAPIErrorCodes(t *testing.T) {
	for _, code := range []string{"NoSuchKey", "NotFound"} {
		err := &smithy.GenericAPIError{Code: code, Message: "missing"}
		if !isNotFound(err) {
			t.Errorf("APIError with code %q should be treated as not-found", code)
		}
	}
}

func TestIsNotFoundRejectsOtherErrors(t *testing.T) {
	if isNotFound(errors.New("connection reset")) {
		t.Fatalf("a plain error should never be treated as not-found")
	}
	if isNotFound(&smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}) {
		t.Fatalf("AccessDenied should not be treated as not-found")
	}
	wrapped := fmt.Errorf("listing failed: %w", &smithy.GenericAPIError{Code: "InternalError"})
	if isNotFound(wrapped) {
		t.Fatalf("InternalError should not be treated as not-found")
	}
}

func TestIsNotFoundUnwrapsWrappedNoSuchKey(t *testing.T) {
	wrapped := fmt.Errorf("getting object: %w", &s3.NoSuchKey{})
	if !isNotFound(wrapped) {
		t.Fatalf("a wrapped s3.NoSuchKey should still be treated as not-found")
	}
}

func TestNewS3StoreDoesNotTouchNetwork(t *testing.T) {
	// The client is built lazily on first Put/Get/Delete/ListPage call, so
	// constructing an S3Store from config alone must not dial anything.
	store := NewS3Store(S3Config{Bucket: "some-bucket", Region: "us-east-1"})
	if store == nil {
		t.Fatalf("NewS3Store returned nil")
	}
	if store.client != nil {
		t.Fatalf("client should not be constructed before first use")
	}
}
