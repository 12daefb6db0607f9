package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/apiclient"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/cache"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/config"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
)

// Option source names.
const (
	SourceProfiles           = "profiles"
	SourceOPCSecurity        = "opc-security"
	SourceJobGroups          = "jobs-groups"
	SourceMeasurementSystems = "measurementsystems"
	SourceConnections        = "connections"
	SourceConnectionTypes    = "connection-types"
	SourceElementTypes       = "element-types"
	SourceTagNames           = "tag-names"
	SourceOpsTypes           = "ops-types"
	SourceMeasurementUnits   = "measurementunits"
	SourceInstallations      = "installations"
	SourceTanks              = "tanks"
	SourceDucts              = "ducts"

	suffixModbus = " [Modbus]"
	suffixOPC    = " [OPC]"
	suffixODBC   = " [ODBC]"

	partitionProfile = "profile:"
	partitionUser    = "user:"
	partitionJoiner  = "|"

	logEventOptionsFailed = "option_source_failed"
	logFieldSource        = "source"

	errorMessageUnknownSource = "catalog: unknown option source"
	errorMessageMissingScope  = "catalog: option source requires a scope"
	errorMessageLoadSource    = "catalog: load option source"
)

var (
	// ErrUnknownSource indicates a field references a source that is not registered.
	ErrUnknownSource = errors.New(errorMessageUnknownSource)
	// ErrMissingScope indicates a scoped source such as tanks was requested without its scope.
	ErrMissingScope = errors.New(errorMessageMissingScope)
)

// Fetcher issues authenticated reads against the backend on behalf of one signed-in user.
type Fetcher struct {
	client  *apiclient.Client
	runtime config.RuntimeConfig
	token   string
}

// NewFetcher builds a Fetcher for token.
func NewFetcher(client *apiclient.Client, runtimeConfig config.RuntimeConfig, token string) Fetcher {
	return Fetcher{client: client, runtime: runtimeConfig, token: token}
}

// Records reads a prefixed endpoint returning an array of objects.
func (fetcher Fetcher) Records(ctx context.Context, segments ...string) ([]map[string]any, error) {
	var records []map[string]any
	if fetchErr := fetcher.decode(ctx, &records, segments...); fetchErr != nil {
		return nil, fetchErr
	}
	return records, nil
}

// Strings reads a prefixed endpoint returning an array of strings.
func (fetcher Fetcher) Strings(ctx context.Context, segments ...string) ([]string, error) {
	var values []string
	if fetchErr := fetcher.decode(ctx, &values, segments...); fetchErr != nil {
		return nil, fetchErr
	}
	return values, nil
}

func (fetcher Fetcher) decode(ctx context.Context, target any, segments ...string) error {
	response, getErr := fetcher.client.Get(ctx, fetcher.runtime.Endpoint(true, segments...), nil, apiclient.WithToken(fetcher.token))
	if getErr != nil {
		return getErr
	}
	decoder := json.NewDecoder(bytes.NewReader(response.Data))
	decoder.UseNumber()
	if decodeErr := decoder.Decode(target); decodeErr != nil {
		return fmt.Errorf("%s: %w", errorMessageLoadSource, decodeErr)
	}
	return nil
}

// SourceLoader fetches one source. Scope is empty for unscoped sources.
type SourceLoader func(ctx context.Context, fetcher Fetcher, scope string) ([]form.Option, error)

// Source is a named option list.
type Source struct {
	Name   string
	Scoped bool
	Load   SourceLoader
}

// DefaultSources returns every option source the console's forms use.
func DefaultSources() []Source {
	return []Source{
		{Name: SourceProfiles, Load: recordOptions("id", "name", "profiles")},
		{Name: SourceOPCSecurity, Load: stringOptions(true, "enums-system/tipos/opc-security")},
		{Name: SourceJobGroups, Load: stringOptions(false, "enums-system/tipos/jobs-groups")},
		{Name: SourceMeasurementSystems, Load: recordOptions("id", "tag", "measurementsystems")},
		{Name: SourceConnections, Load: loadConnections},
		{Name: SourceConnectionTypes, Load: stringOptions(false, "enums-system/tipos/conexiones")},
		{Name: SourceElementTypes, Load: stringOptions(false, "enums-system/tipos/elementos")},
		{Name: SourceTagNames, Load: stringOptions(true, "enums-system/tipos/tags-names")},
		{Name: SourceOpsTypes, Load: stringOptions(false, "enums-system/tipos/ops-volumetricas")},
		{Name: SourceMeasurementUnits, Load: recordOptions("id", "name", "measurementunits")},
		{Name: SourceInstallations, Scoped: true, Load: scopedOptions("publicKey", "claveInstalacion", false, "helper-query/cv360/instalaciones/by-user/%s")},
		{Name: SourceTanks, Scoped: true, Load: scopedOptions("publicKey", "claveIdentificacionTanque", true, "helper-query/cv360/instalaciones/%s/tanks")},
		{Name: SourceDucts, Scoped: true, Load: scopedOptions("publicKey", "claveIdentificacionDucto", true, "helper-query/cv360/instalaciones/%s/ducts")},
	}
}

func recordOptions(valueKey string, labelKey string, path string) SourceLoader {
	return func(ctx context.Context, fetcher Fetcher, _ string) ([]form.Option, error) {
		records, fetchErr := fetcher.Records(ctx, path)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return mapRecords(records, valueKey, labelKey, ""), nil
	}
}

func stringOptions(capitalize bool, path string) SourceLoader {
	return func(ctx context.Context, fetcher Fetcher, _ string) ([]form.Option, error) {
		values, fetchErr := fetcher.Strings(ctx, path)
		if fetchErr != nil {
			return nil, fetchErr
		}
		options := make([]form.Option, 0, len(values))
		for _, value := range values {
			label := value
			if capitalize {
				label = capitalizeFirst(value)
			}
			options = append(options, form.Option{Value: value, Label: label})
		}
		return options, nil
	}
}

func scopedOptions(valueKey string, labelKey string, sorted bool, pathFormat string) SourceLoader {
	return func(ctx context.Context, fetcher Fetcher, scope string) ([]form.Option, error) {
		if strings.TrimSpace(scope) == "" {
			return nil, ErrMissingScope
		}
		records, fetchErr := fetcher.Records(ctx, fmt.Sprintf(pathFormat, scope))
		if fetchErr != nil {
			return nil, fetchErr
		}
		options := mapRecords(records, valueKey, labelKey, "")
		if sorted {
			SortOptions(options)
		}
		return options, nil
	}
}

func loadConnections(ctx context.Context, fetcher Fetcher, _ string) ([]form.Option, error) {
	kinds := []struct {
		path     string
		labelKey string
		suffix   string
	}{
		{path: "modbus-conexion", labelKey: "name", suffix: suffixModbus},
		{path: "opc-conexion", labelKey: "applicationName", suffix: suffixOPC},
		{path: "odbc-conexion", labelKey: "name", suffix: suffixODBC},
	}
	results := make([][]form.Option, len(kinds))
	group, groupCtx := errgroup.WithContext(ctx)
	for index, kind := range kinds {
		index, kind := index, kind
		group.Go(func() error {
			records, fetchErr := fetcher.Records(groupCtx, kind.path)
			if fetchErr != nil {
				return fmt.Errorf("%s: %w", kind.path, fetchErr)
			}
			results[index] = mapRecords(records, "id", kind.labelKey, kind.suffix)
			return nil
		})
	}
	if waitErr := group.Wait(); waitErr != nil {
		return nil, waitErr
	}
	merged := make([]form.Option, 0)
	for _, options := range results {
		merged = append(merged, options...)
	}
	return merged, nil
}

func mapRecords(records []map[string]any, valueKey string, labelKey string, suffix string) []form.Option {
	options := make([]form.Option, 0, len(records))
	for _, record := range records {
		value, found := record[valueKey]
		if !found || value == nil {
			continue
		}
		label := fmt.Sprint(record[labelKey])
		if record[labelKey] == nil {
			label = fmt.Sprint(value)
		}
		options = append(options, form.Option{Value: value, Label: label + suffix})
	}
	return options
}

func capitalizeFirst(value string) string {
	first, size := utf8.DecodeRuneInString(value)
	if first == utf8.RuneError {
		return value
	}
	return string(unicode.ToUpper(first)) + value[size:]
}

// SortOptions orders options by label using Spanish collation.
func SortOptions(options []form.Option) {
	collator := collate.New(language.Spanish, collate.IgnoreCase, collate.Numeric)
	sort.SliceStable(options, func(left int, right int) bool {
		return collator.CompareString(options[left].Label, options[right].Label) < 0
	})
}

// Caller is the signed-in user options are loaded for. Cached lists are shared only between
// callers of the same profile, or of the same username when the profile is unknown.
type Caller struct {
	Token    string
	Username string
	Profile  string
}

func (caller Caller) partition() string {
	if strings.TrimSpace(caller.Profile) != "" {
		return partitionProfile + caller.Profile
	}
	return partitionUser + caller.Username
}

// Request asks for one source, with a scope for scoped sources.
type Request struct {
	Source string
	Scope  string
}

// OptionLoaderConfig captures the OptionLoader dependencies.
type OptionLoaderConfig struct {
	Client  *apiclient.Client
	Runtime config.RuntimeConfig
	Cache   *cache.OptionCache
	TTL     time.Duration
	Sources []Source
	Logger  *zap.Logger
}

// OptionLoader resolves option sources through the shared cache, loading independent sources in
// parallel.
type OptionLoader struct {
	client  *apiclient.Client
	runtime config.RuntimeConfig
	cache   *cache.OptionCache
	ttl     time.Duration
	sources map[string]Source
	logger  *zap.Logger
}

// NewOptionLoader builds an OptionLoader. Without Sources it registers DefaultSources.
func NewOptionLoader(configuration OptionLoaderConfig) *OptionLoader {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sources := configuration.Sources
	if sources == nil {
		sources = DefaultSources()
	}
	indexed := make(map[string]Source, len(sources))
	for _, source := range sources {
		indexed[source.Name] = source
	}
	return &OptionLoader{
		client:  configuration.Client,
		runtime: configuration.Runtime,
		cache:   configuration.Cache,
		ttl:     configuration.TTL,
		sources: indexed,
		logger:  logger,
	}
}

// Load resolves every request concurrently for caller. The first failure cancels the rest.
func (loader *OptionLoader) Load(ctx context.Context, caller Caller, requests ...Request) (map[string][]form.Option, error) {
	sources := make([]Source, len(requests))
	for index, request := range requests {
		source, found := loader.sources[request.Source]
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, request.Source)
		}
		if source.Scoped && strings.TrimSpace(request.Scope) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingScope, request.Source)
		}
		sources[index] = source
	}

	fetcher := NewFetcher(loader.client, loader.runtime, caller.Token)
	resolved := make(map[string][]form.Option, len(requests))
	var mutex sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for index, request := range requests {
		request := request
		source := sources[index]
		group.Go(func() error {
			options, loadErr := loader.loadOne(groupCtx, fetcher, caller, source, request.Scope)
			if loadErr != nil {
				loader.logger.Warn(logEventOptionsFailed, zap.String(logFieldSource, source.Name), zap.Error(loadErr))
				return fmt.Errorf("%s %s: %w", errorMessageLoadSource, source.Name, loadErr)
			}
			mutex.Lock()
			resolved[request.Source] = options
			mutex.Unlock()
			return nil
		})
	}
	if waitErr := group.Wait(); waitErr != nil {
		return nil, waitErr
	}
	return resolved, nil
}

// ResolveFields fills every sourced dropdown in fields. Scoped sources receive the caller's username.
func (loader *OptionLoader) ResolveFields(ctx context.Context, caller Caller, fields []form.FieldDescriptor) ([]form.FieldDescriptor, error) {
	names := form.Sources(fields)
	if len(names) == 0 {
		return fields, nil
	}
	requests := make([]Request, 0, len(names))
	for _, name := range names {
		request := Request{Source: name}
		if source, found := loader.sources[name]; found && source.Scoped {
			request.Scope = caller.Username
		}
		requests = append(requests, request)
	}
	options, loadErr := loader.Load(ctx, caller, requests...)
	if loadErr != nil {
		return nil, loadErr
	}
	return form.WithOptions(fields, options), nil
}

// Invalidate drops cached lists for sources.
func (loader *OptionLoader) Invalidate(sources ...string) {
	if loader.cache == nil || len(sources) == 0 {
		return
	}
	loader.cache.Invalidate(sources...)
}

func (loader *OptionLoader) loadOne(ctx context.Context, fetcher Fetcher, caller Caller, source Source, scope string) ([]form.Option, error) {
	load := func(loadCtx context.Context) ([]form.Option, error) {
		return source.Load(loadCtx, fetcher, scope)
	}
	if loader.cache == nil {
		return load(ctx)
	}
	partition := caller.partition()
	if source.Scoped {
		partition += partitionJoiner + scope
	}
	return loader.cache.Load(ctx, cache.ScopedKey(source.Name, partition), loader.ttl, load)
}
