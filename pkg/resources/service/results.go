// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/de"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/transport/cdp"
)

// errorCode maps collaborator errors onto formae error codes
func errorCode(err error) resource.OperationErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, de.ErrServiceNotFound):
		return resource.OperationErrorCodeNotFound
	case cdp.CodeOf(err) == cdp.ErrorCodeUnknown:
		return resource.OperationErrorCodeServiceInternalError
	default:
		return cdp.ToResourceErrorCode(cdp.CodeOf(err))
	}
}

// createFailure creates a failure result for Create operations
func createFailure(nativeID string, errorCode resource.OperationErrorCode, message string) *resource.CreateResult {
	return &resource.CreateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationCreate,
			OperationStatus: resource.OperationStatusFailure,
			ErrorCode:       errorCode,
			StatusMessage:   message,
			NativeID:        nativeID,
		},
	}
}

// deleteFailure creates a failure result for Delete operations
func deleteFailure(nativeID string, errorCode resource.OperationErrorCode, message string) *resource.DeleteResult {
	return &resource.DeleteResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationDelete,
			OperationStatus: resource.OperationStatusFailure,
			ErrorCode:       errorCode,
			StatusMessage:   message,
			NativeID:        nativeID,
		},
	}
}

func deleteSuccess(nativeID string) *resource.DeleteResult {
	return &resource.DeleteResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationDelete,
			OperationStatus: resource.OperationStatusSuccess,
			NativeID:        nativeID,
		},
	}
}

// statusFailure creates a failure result for Status operations
func statusFailure(request *resource.StatusRequest, errorCode resource.OperationErrorCode, message string) *resource.StatusResult {
	return &resource.StatusResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationCheckStatus,
			OperationStatus: resource.OperationStatusFailure,
			ErrorCode:       errorCode,
			StatusMessage:   message,
			RequestID:       request.RequestID,
			NativeID:        request.NativeID,
		},
	}
}

func statusInProgress(request *resource.StatusRequest, status string) *resource.StatusResult {
	return &resource.StatusResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationCheckStatus,
			OperationStatus: resource.OperationStatusInProgress,
			StatusMessage:   fmt.Sprintf("Service status: %s", status),
			RequestID:       request.RequestID,
			NativeID:        request.NativeID,
		},
	}
}

func statusSuccess(request *resource.StatusRequest, propsJSON json.RawMessage) *resource.StatusResult {
	return &resource.StatusResult{
		ProgressResult: &resource.ProgressResult{
			Operation:          resource.OperationCheckStatus,
			OperationStatus:    resource.OperationStatusSuccess,
			RequestID:          request.RequestID,
			NativeID:           request.NativeID,
			ResourceProperties: propsJSON,
		},
	}
}
