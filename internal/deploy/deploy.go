// Package deploy runs the two-step redeploy for a stack: pull the requested
// image, then recreate the stack's services with compose. Both steps are
// synchronous and sequential; a failed pull stops the sequence.
package deploy

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"composehook/internal/security"
	"composehook/internal/stack"
)

// Deployment manages one redeploy of a stack at a given tag.
type Deployment struct {
	Stack          *stack.Stack
	Tag            string
	PullTimeout    int
	RestartTimeout int
	ExposeOutput   bool
	Outputs        []string
	Executor       *Executor
}

// NewDeployment creates a deployment for the stack and tag.
func NewDeployment(st *stack.Stack, tag string, pullTimeout, restartTimeout int, exposeOutput bool) *Deployment {
	return &Deployment{
		Stack:          st,
		Tag:            tag,
		PullTimeout:    pullTimeout,
		RestartTimeout: restartTimeout,
		ExposeOutput:   exposeOutput,
		Outputs:        []string{},
		Executor:       NewExecutor(st.Dir),
	}
}

// Execute runs the pull-then-restart sequence and returns a response body
// plus HTTP status: 200 on success, 500 when an external command fails.
func (d *Deployment) Execute(ctx context.Context) (map[string]interface{}, int) {
	if ctx == nil {
		ctx = context.Background()
	}

	// A cancelled deployment is a failed external action: 500, like any
	// other command failure.
	select {
	case <-ctx.Done():
		return d.errorResponse("Deployment cancelled before start"), http.StatusInternalServerError
	default:
	}

	// Validate inputs once more at the execution boundary; the handler
	// validates too, but the deployment can be driven from other callers.
	if err := security.ValidateServiceName(d.Stack.Name); err != nil {
		return d.errorResponse(fmt.Sprintf("Invalid service name: %v", err)), http.StatusBadRequest
	}
	if err := security.ValidateTag(d.Tag); err != nil {
		return d.errorResponse(fmt.Sprintf("Invalid tag: %v", err)), http.StatusBadRequest
	}
	if err := security.ValidateImageName(d.Stack.Image); err != nil {
		return d.errorResponse(fmt.Sprintf("Invalid image: %v", err)), http.StatusBadRequest
	}

	imageRef := d.Stack.ImageRef(d.Tag)

	// Step 1: pull the requested image
	pullResult, err := d.Executor.PullImage(ctx, d.Stack.ComposeCommand, imageRef, d.PullTimeout)
	d.collect(pullResult)
	if err != nil {
		return d.errorResponse(fmt.Sprintf("Failed to pull %s: %v", imageRef, err)), http.StatusInternalServerError
	}

	// Check for cancellation between the two commands
	select {
	case <-ctx.Done():
		return d.errorResponse("Deployment cancelled after pull"), http.StatusInternalServerError
	default:
	}

	// Step 2: recreate the stack from the new image
	upResult, err := d.Executor.ComposeUp(ctx, d.Stack.ComposeCommand, d.Stack.ComposeFile, d.RestartTimeout)
	d.collect(upResult)
	if err != nil {
		return d.errorResponse(fmt.Sprintf("Failed to restart stack: %v", err)), http.StatusInternalServerError
	}

	return d.successResponse(imageRef), http.StatusOK
}

func (d *Deployment) collect(result *ExecutionResult) {
	if result != nil && result.Output != "" {
		d.Outputs = append(d.Outputs, result.Output)
	}
}

// errorResponse builds an error response body
func (d *Deployment) errorResponse(errorMsg string) map[string]interface{} {
	response := map[string]interface{}{
		"error": errorMsg,
	}

	if d.ExposeOutput {
		response["output"] = strings.Join(d.Outputs, "\n")
	}

	return response
}

// successResponse builds a success response body
func (d *Deployment) successResponse(imageRef string) map[string]interface{} {
	response := map[string]interface{}{
		"message": "deployed",
		"service": d.Stack.Name,
		"tag":     d.Tag,
		"image":   imageRef,
	}

	if d.ExposeOutput {
		response["output"] = strings.Join(d.Outputs, "\n")
	}

	return response
}
