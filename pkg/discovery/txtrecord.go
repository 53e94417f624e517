package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXT record key constants.
const (
	TXTKeyHubID       = "HI" // Hub ID (required)
	TXTKeyVersion     = "V"  // Protocol version (required)
	TXTKeyName        = "DN" // Hub display name (optional)
	TXTKeySensorCount = "SC" // Hosted sensor count (optional)
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeHubTXT creates TXT records for hub discovery.
func EncodeHubTXT(info *HubInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyHubID] = info.HubID
	txt[TXTKeyVersion] = info.Version

	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	if info.SensorCount > 0 {
		txt[TXTKeySensorCount] = strconv.Itoa(info.SensorCount)
	}

	return txt
}

// DecodeHubTXT parses TXT records from hub discovery.
func DecodeHubTXT(txt TXTRecordMap) (*HubInfo, error) {
	info := &HubInfo{}

	var ok bool
	info.HubID, ok = txt[TXTKeyHubID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyHubID)
	}

	info.Version, ok = txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}

	info.Name = txt[TXTKeyName]

	if scStr, ok := txt[TXTKeySensorCount]; ok {
		sc, err := strconv.Atoi(scStr)
		if err != nil || sc < 0 {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeySensorCount, scStr)
		}
		info.SensorCount = sc
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value"
// strings, the format mDNS libraries expect.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}
