// Package workload reads workload definition files. Definitions use
// HCL: one workload block holding component blocks, each with an
// optional usage block.
package workload

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.uber.org/zap"

	"hostcost/core/types"
	"hostcost/internal/errors"
	"hostcost/internal/logging"
)

// Result is a parsed workload plus the issues found while reading it.
// Issues cover attributes that could not be interpreted; the workload
// still carries everything that could.
type Result struct {
	// Workload is the parsed definition
	Workload *types.Workload `json:"workload"`

	// Issues lists attributes that were skipped or defaulted
	Issues []*errors.Error `json:"issues,omitempty"`
}

// Degraded reports whether any part of the definition was skipped
func (r *Result) Degraded() bool {
	return len(r.Issues) > 0
}

// Reader parses workload definition files
type Reader struct {
	parser *hclparse.Parser
	log    *zap.Logger
}

// NewReader creates a workload reader
func NewReader() *Reader {
	return &Reader{
		parser: hclparse.NewParser(),
		log:    logging.Named("workload"),
	}
}

// ReadFile reads and parses a workload definition file
func (r *Reader) ReadFile(path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Storage("reading workload file", err)
	}
	return r.Read(src, path)
}

// Read parses a workload definition. Syntax errors fail the read;
// attributes that cannot be interpreted become issues and parsing
// continues without them.
func (r *Reader) Read(src []byte, filename string) (*Result, error) {
	file, diags := r.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Parsing(fmt.Sprintf("parsing %s", filename), diags)
	}

	content, _, contentDiags := file.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "workload", LabelNames: []string{"name"}},
		},
	})
	if len(content.Blocks) == 0 {
		if contentDiags.HasErrors() {
			return nil, errors.Parsing(fmt.Sprintf("parsing %s", filename), contentDiags)
		}
		return nil, errors.Validation(fmt.Sprintf("no workload block in %s", filename))
	}

	result := &Result{}
	if len(content.Blocks) > 1 {
		result.addIssue(errors.Validation(fmt.Sprintf(
			"%s holds %d workload blocks, using the first", filename, len(content.Blocks))))
	}

	result.Workload = r.parseWorkload(content.Blocks[0], result)
	r.log.Debug("Read workload definition",
		zap.String("file", filename),
		zap.String("workload", result.Workload.Name),
		zap.Int("components", len(result.Workload.Components)),
		zap.Int("issues", len(result.Issues)))
	return result, nil
}

func (r *Reader) parseWorkload(block *hcl.Block, result *Result) *types.Workload {
	w := &types.Workload{Name: block.Labels[0]}

	content, _, diags := block.Body.PartialContent(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "environment"},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "component", LabelNames: []string{"name"}},
		},
	})
	result.addDiagnostics(w.Name, diags)

	if env, ok := r.stringAttr(content.Attributes, "environment", w.Name, result); ok {
		w.Environment = env
	}
	for _, componentBlock := range content.Blocks {
		if component := r.parseComponent(componentBlock, w.Name, result); component != nil {
			w.Components = append(w.Components, *component)
		}
	}
	return w
}

func (r *Reader) parseComponent(block *hcl.Block, workloadName string, result *Result) *types.Component {
	if len(block.Labels) == 0 {
		return nil
	}
	owner := workloadName + "." + block.Labels[0]

	content, _, diags := block.Body.PartialContent(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "kind"},
			{Name: "provider"},
			{Name: "tier"},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "usage"},
		},
	})
	result.addDiagnostics(owner, diags)

	component := &types.Component{
		Name:  block.Labels[0],
		Usage: types.UsageVector{Period: types.PeriodMonthly},
	}
	if kind, ok := r.stringAttr(content.Attributes, "kind", owner, result); ok {
		component.Kind = types.ComponentKind(strings.ToLower(kind))
	}
	if provider, ok := r.stringAttr(content.Attributes, "provider", owner, result); ok {
		component.Provider = types.Provider(strings.ToLower(provider))
	}
	if tier, ok := r.stringAttr(content.Attributes, "tier", owner, result); ok {
		component.TierHint = tier
	}

	if len(content.Blocks) > 0 {
		if len(content.Blocks) > 1 {
			result.addIssue(errors.Validation(fmt.Sprintf(
				"%s: multiple usage blocks, using the first", owner)))
		}
		component.Usage = r.parseUsage(content.Blocks[0].Body, owner, result)
	}
	return component
}

// dimensionAttrs maps usage attribute names to billing dimensions
var dimensionAttrs = []struct {
	attr      string
	dimension types.Dimension
}{
	{"requests", types.DimensionRequests},
	{"bandwidth", types.DimensionBandwidth},
	{"storage", types.DimensionStorage},
	{"compute_hours", types.DimensionCompute},
	{"concurrent_users", types.DimensionUsers},
}

func (r *Reader) parseUsage(body hcl.Body, owner string, result *Result) types.UsageVector {
	usage := types.UsageVector{Period: types.PeriodMonthly}

	attrs, diags := body.JustAttributes()
	result.addDiagnostics(owner, diags)

	if period, ok := r.stringAttr(attrs, "period", owner, result); ok {
		parsed := types.BillingPeriod(strings.ToLower(period))
		if parsed.IsValid() {
			usage.Period = parsed
		} else {
			result.addIssue(errors.Validation(fmt.Sprintf(
				"%s: unknown usage period %q, assuming monthly", owner, period)))
		}
	}

	for _, mapping := range dimensionAttrs {
		lit, ok := r.literalAttr(attrs, mapping.attr, owner, result)
		if !ok {
			continue
		}
		quantity, err := lit.AsQuantity(mapping.dimension.String())
		if err != nil {
			result.addIssue(asError(err).WithContext("component", owner))
			continue
		}
		switch mapping.dimension {
		case types.DimensionRequests:
			usage.Requests = &quantity
		case types.DimensionBandwidth:
			usage.Bandwidth = &quantity
		case types.DimensionStorage:
			usage.Storage = &quantity
		case types.DimensionCompute:
			usage.ComputeHours = &quantity
		case types.DimensionUsers:
			usage.ConcurrentUsers = &quantity
		}
	}

	if lit, ok := r.literalAttr(attrs, "regions", owner, result); ok {
		if lit.Kind != KindMap {
			result.addIssue(errors.Validation(fmt.Sprintf(
				"%s: regions must be a map of region to weight", owner)))
		} else {
			weights, rejected := lit.AsWeights()
			for _, region := range rejected {
				result.addIssue(errors.Validation(fmt.Sprintf(
					"%s: region %q weight must be a number", owner, region)))
			}
			if len(weights) > 0 {
				usage.Regions = weights
			}
		}
	}

	if lit, ok := r.literalAttr(attrs, "peak_factor", owner, result); ok {
		if lit.Kind == KindNumber {
			usage.PeakFactor = lit.AsFloat()
		} else {
			result.addIssue(errors.Validation(fmt.Sprintf(
				"%s: peak_factor must be a number", owner)))
		}
	}
	return usage
}

// literalAttr evaluates a named attribute to a literal. Absent
// attributes and nulls return false; expressions that cannot be
// statically evaluated become issues.
func (r *Reader) literalAttr(attrs hcl.Attributes, name, owner string, result *Result) (Literal, bool) {
	attr, ok := attrs[name]
	if !ok {
		return Literal{}, false
	}

	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		result.addIssue(errors.Validation(fmt.Sprintf(
			"%s: %s is not a literal value", owner, name)))
		return Literal{}, false
	}

	lit := FromCty(val)
	if !lit.Known {
		result.addIssue(errors.Validation(fmt.Sprintf(
			"%s: %s has an unsupported value type (%s)", owner, name, lit.CtyType)))
		return Literal{}, false
	}
	if lit.Null {
		return Literal{}, false
	}
	return lit, true
}

func (r *Reader) stringAttr(attrs hcl.Attributes, name, owner string, result *Result) (string, bool) {
	lit, ok := r.literalAttr(attrs, name, owner, result)
	if !ok {
		return "", false
	}
	if lit.Kind != KindString {
		result.addIssue(errors.Validation(fmt.Sprintf(
			"%s: %s must be a string, got %s", owner, name, lit.Kind)))
		return "", false
	}
	return lit.AsString(), true
}

func (result *Result) addIssue(issue *errors.Error) {
	result.Issues = append(result.Issues, issue)
}

func (result *Result) addDiagnostics(owner string, diags hcl.Diagnostics) {
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		result.addIssue(errors.Validation(fmt.Sprintf(
			"%s: %s", owner, diag.Summary)))
	}
}

func asError(err error) *errors.Error {
	var typed *errors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return errors.Internal(err.Error(), err)
}
