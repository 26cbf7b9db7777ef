// Package normalize maps arbitrarily-named source columns onto the canonical
// asset schema. Normalization is total: a row with no usable columns still
// yields a NormalizedAsset, with every field at its zero value.
package normalize

import (
	"strconv"
	"strings"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/helper"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// fieldAliases lists the accepted column aliases per canonical field, in
// priority order. The first alias with a non-empty value wins.
var fieldAliases = map[string][]string{
	"tag_id":           {"tag_id", "tag", "tag_no", "tag_number", "asset_tag", "instrument_tag", "loop_tag", "equipment_id", "asset_id"},
	"ip_address":       {"ip_address", "ip", "ipv4", "ip_addr", "address", "host_ip"},
	"mac_address":      {"mac_address", "mac", "mac_addr", "hardware_address", "physical_address"},
	"hostname":         {"hostname", "host_name", "host", "device_name", "computer_name", "name"},
	"plant":            {"plant", "site", "facility", "location"},
	"unit":             {"unit", "area", "process_unit", "process_area", "zone", "section"},
	"device_type":      {"device_type", "type", "asset_type", "equipment_type", "device_class", "category"},
	"manufacturer":     {"manufacturer", "vendor", "make", "oem", "brand"},
	"model":            {"model", "model_number", "model_no", "product", "product_name", "part_number"},
	"criticality":      {"criticality", "criticality_rating", "importance", "priority"},
	"security_tier":    {"security_tier", "tier", "security_level"},
	"critical_vulns":   {"critical_vulns", "critical_vulnerabilities", "crit_vulns", "vulns_critical"},
	"high_vulns":       {"high_vulns", "high_vulnerabilities", "vulns_high"},
	"medium_vulns":     {"medium_vulns", "medium_vulnerabilities", "vulns_medium"},
	"low_vulns":        {"low_vulns", "low_vulnerabilities", "vulns_low"},
	"patch_level":      {"patch_level", "patch", "patch_version", "os_patch_level"},
	"firmware_version": {"firmware_version", "firmware", "fw_version", "firmware_rev"},
	"install_date":     {"install_date", "installation_date", "installed", "commissioned", "commission_date"},
	"first_seen":       {"first_seen", "first_discovered", "discovered"},
	"last_seen":        {"last_seen", "last_observed", "last_contact", "last_communication"},
	"network_segment":  {"network_segment", "segment", "vlan", "subnet", "network_zone"},
	"protocol":         {"protocol", "protocols", "comm_protocol", "communication_protocol"},
	"safety_critical":  {"safety_critical", "safety", "sis", "safety_related", "safety_relevant"},
}

// NormalizeKey canonicalizes a column name: lower-case, with runs of
// whitespace and hyphens collapsed to single underscores.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, "-", " ")
	return strings.Join(strings.Fields(k), "_")
}

// ParseBool parses the fixed truthy token set {"true","yes","1"}; anything
// else, including empty, is false.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

// ParseInt parses an integer field, defaulting to 0 on failure.
func ParseInt(value string) int {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Accept "2.0"-style exports.
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}

// Normalize maps one raw row onto the canonical schema. It is a pure
// function and idempotent: normalizing an already-normalized record changes
// nothing.
func Normalize(row model.RawRecord, kind model.SourceKind) model.NormalizedAsset {
	fields := make(map[string]string, len(row.Fields))
	for key, value := range row.Fields {
		nk := NormalizeKey(key)
		if nk == "" {
			continue
		}
		if _, exists := fields[nk]; !exists || strings.TrimSpace(value) != "" {
			fields[nk] = value
		}
	}

	pick := func(field string) string {
		for _, alias := range fieldAliases[field] {
			if v, ok := fields[alias]; ok {
				if trimmed := strings.TrimSpace(v); trimmed != "" {
					return trimmed
				}
			}
		}
		return ""
	}

	asset := model.NormalizedAsset{
		TagID:           strings.ToUpper(pick("tag_id")),
		IPAddress:       pick("ip_address"),
		MACAddress:      helper.NormalizeMAC(pick("mac_address")),
		Hostname:        pick("hostname"),
		Plant:           pick("plant"),
		Unit:            pick("unit"),
		DeviceType:      pick("device_type"),
		Manufacturer:    pick("manufacturer"),
		Model:           pick("model"),
		Criticality:     strings.ToLower(pick("criticality")),
		SecurityTier:    ParseInt(pick("security_tier")),
		CriticalVulns:   ParseInt(pick("critical_vulns")),
		HighVulns:       ParseInt(pick("high_vulns")),
		MediumVulns:     ParseInt(pick("medium_vulns")),
		LowVulns:        ParseInt(pick("low_vulns")),
		PatchLevel:      pick("patch_level"),
		FirmwareVersion: pick("firmware_version"),
		InstallDate:     pick("install_date"),
		FirstSeen:       pick("first_seen"),
		LastSeen:        pick("last_seen"),
		NetworkSegment:  pick("network_segment"),
		Protocol:        pick("protocol"),
		SafetyCritical:  ParseBool(pick("safety_critical")),
		Source:          row.Source,
		Kind:            kind,
	}
	if asset.SecurityTier < 0 || asset.SecurityTier > 3 {
		asset.SecurityTier = 0
	}
	return asset
}

// NormalizeAll normalizes a batch of rows from one source.
func NormalizeAll(rows []model.RawRecord, kind model.SourceKind) []model.NormalizedAsset {
	assets := make([]model.NormalizedAsset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, Normalize(row, kind))
	}
	return assets
}
