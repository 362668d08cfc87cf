package ipcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"ipv4intel/internal/domain"
	"ipv4intel/internal/ipv4"
	"ipv4intel/internal/resolver"
)

// Team Cymru IP to ASN zones
const (
	CymruOriginZone = "origin.asn.cymru.com"
	CymruPeerZone   = "peer.asn.cymru.com"
	CymruASNZone    = "asn.cymru.com"
)

// ErrResolutionFailed is returned when any stage of the ASN pipeline fails.
// No partial NetworkData is ever returned with it.
var ErrResolutionFailed = errors.New("network data resolution failed")

// ASNResolver resolves ownership metadata through Team Cymru's DNS service
type ASNResolver struct {
	resolver resolver.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewASNResolver creates a resolver using r for the TXT lookups
func NewASNResolver(r resolver.Resolver, logger *slog.Logger) *ASNResolver {
	initMetrics()
	return &ASNResolver{
		resolver: r,
		logger:   logger.With("module", "ipcheck.asn"),
		now:      time.Now,
	}
}

// originDelta is what the origin stage contributes to the record
type originDelta struct {
	asn       string
	cidr      string
	country   string
	registry  string
	allocated string
}

// ResolveNetworkData validates raw and resolves it. Invalid input is
// rejected before any lookup is made.
func (a *ASNResolver) ResolveNetworkData(ctx context.Context, raw string) (domain.NetworkData, error) {
	addr, err := ipv4.Parse(raw)
	if err != nil {
		return domain.NetworkData{}, err
	}
	return a.Resolve(ctx, addr)
}

// Resolve runs the origin, peer and provider lookups in order. Each stage
// starts only after the previous one succeeded; the first failure ends
// the call.
func (a *ASNResolver) Resolve(ctx context.Context, addr ipv4.Address) (domain.NetworkData, error) {
	start := time.Now()
	defer observeLookup("network", start)

	l := a.logger.With("observed_ip", addr.String())
	l.Info("Network data lookup start")

	origin, err := a.lookupOrigin(ctx, addr)
	if err != nil {
		return domain.NetworkData{}, a.fail(l, "origin", err)
	}

	peers, err := a.lookupPeers(ctx, addr)
	if err != nil {
		return domain.NetworkData{}, a.fail(l, "peers", err)
	}

	provider, err := a.lookupProvider(ctx, origin.asn)
	if err != nil {
		return domain.NetworkData{}, a.fail(l, "provider", err)
	}

	data := domain.NetworkData{
		IP:          addr.String(),
		ASN:         origin.asn,
		CIDR:        origin.cidr,
		CountryCode: origin.country,
		Registry:    origin.registry,
		Allocated:   origin.allocated,
		ASNPeers:    peers,
		Provider:    provider,
		ResolvedAt:  a.now(),
	}

	l.Info("Network data lookup done",
		"asn", data.ASN,
		"cidr", data.CIDR,
		"peer_count", len(data.ASNPeers),
		"provider", data.Provider,
	)

	return data, nil
}

func (a *ASNResolver) fail(l *slog.Logger, stage string, err error) error {
	incStageFailure(stage)
	l.Warn("Network data lookup fail",
		"stage", stage,
		"error_detail", err.Error(),
	)
	return fmt.Errorf("%w: %s stage: %w", ErrResolutionFailed, stage, err)
}

// lookupOrigin reads "ASN | CIDR | CC | Registry | Allocated".
// An address announced in several blocks yields several records; the
// first one is used.
func (a *ASNResolver) lookupOrigin(ctx context.Context, addr ipv4.Address) (originDelta, error) {
	txt, err := a.firstTXT(ctx, ipv4.QueryName(addr, CymruOriginZone))
	if err != nil {
		return originDelta{}, err
	}

	fields := splitFields(txt)
	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return originDelta{}, fmt.Errorf("malformed origin record %q", txt)
	}

	return originDelta{
		asn:       fields[0],
		cidr:      fields[1],
		country:   field(fields, 2),
		registry:  field(fields, 3),
		allocated: field(fields, 4),
	}, nil
}

// lookupPeers reads the whitespace separated peer list in the first field.
// The last token of that field is not a peer and is dropped; for the live
// service it is the empty string after the field's trailing space.
func (a *ASNResolver) lookupPeers(ctx context.Context, addr ipv4.Address) ([]string, error) {
	txt, err := a.firstTXT(ctx, ipv4.QueryName(addr, CymruPeerZone))
	if err != nil {
		return nil, err
	}

	first := strings.TrimLeftFunc(strings.SplitN(txt, "|", 2)[0], unicode.IsSpace)
	// one separator per whitespace rune, so a trailing space still yields
	// an empty last token
	first = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, first)
	tokens := strings.Split(first, " ")
	tokens = tokens[:len(tokens)-1]

	peers := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			peers = append(peers, tok)
		}
	}
	return peers, nil
}

// lookupProvider reads the AS name from the fifth field of AS<asn>.asn.cymru.com
func (a *ASNResolver) lookupProvider(ctx context.Context, asn string) (string, error) {
	txt, err := a.firstTXT(ctx, "AS"+asn+"."+CymruASNZone)
	if err != nil {
		return "", err
	}

	fields := splitFields(txt)
	if len(fields) < 5 {
		return "", fmt.Errorf("malformed provider record %q", txt)
	}
	return fields[4], nil
}

func (a *ASNResolver) firstTXT(ctx context.Context, name string) (string, error) {
	txts, err := a.resolver.LookupTXT(ctx, name)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", name, err)
	}
	if len(txts) == 0 {
		return "", fmt.Errorf("lookup %s: no TXT records", name)
	}
	return txts[0], nil
}

func splitFields(txt string) []string {
	parts := strings.Split(txt, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
