package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// cfddns 配置包
const (
	PackageName = "cfddns"
	SectionName = "config"
	SectionType = "cfddns"
	ServiceName = "cfddns"
)

// 默认值
const (
	DefaultLogFile        = "/var/log/cfddns.log"
	DefaultIPService      = "https://api.ipify.org"
	DefaultRecordType     = RecordTypeA
	DefaultIPSource       = IPSourceNetwork
	DefaultTTL            = 300
	DefaultUpdateInterval = 60
)

// DNS 记录类型
const (
	RecordTypeA    = "A"
	RecordTypeAAAA = "AAAA"
)

// IP 获取方式
const (
	IPSourceNetwork   = "network"
	IPSourceInterface = "interface"
)

// 选项名
const (
	KeyEnabled        = "enabled"
	KeyEmail          = "email"
	KeyAPIKey         = "api_key"
	KeyZoneName       = "zone_name"
	KeyRecordName     = "record_name"
	KeyRecordType     = "record_type"
	KeyIPSource       = "ip_source"
	KeyIPService      = "ip_service"
	KeyIPInterface    = "ip_interface"
	KeyTTL            = "ttl"
	KeyUpdateInterval = "update_interval"
	KeyLogFile        = "log_file"
)

var ErrRecordOutsideZone = errors.New("record name is not inside the zone")

// Record cfddns.config 配置段
type Record struct {
	Enabled        bool   `yaml:"enabled"`
	Email          string `yaml:"email"`
	APIKey         string `yaml:"api_key"`
	ZoneName       string `yaml:"zone_name"`
	RecordName     string `yaml:"record_name"`
	RecordType     string `yaml:"record_type"`
	IPSource       string `yaml:"ip_source"`
	IPService      string `yaml:"ip_service"`
	IPInterface    string `yaml:"ip_interface"`
	TTL            uint64 `yaml:"ttl"`
	UpdateInterval uint64 `yaml:"update_interval"`
	LogFile        string `yaml:"log_file"`
}

// DefaultRecord 返回默认配置
func DefaultRecord() Record {
	return Record{
		RecordType:     DefaultRecordType,
		IPSource:       DefaultIPSource,
		IPService:      DefaultIPService,
		TTL:            DefaultTTL,
		UpdateInterval: DefaultUpdateInterval,
		LogFile:        DefaultLogFile,
	}
}

// RecordFromOptions 由选项值构造配置，空值使用默认值
func RecordFromOptions(options map[string]string) (Record, error) {
	r := DefaultRecord()
	r.Enabled = options[KeyEnabled] == "1"
	r.Email = options[KeyEmail]
	r.APIKey = options[KeyAPIKey]
	r.ZoneName = options[KeyZoneName]
	r.RecordName = options[KeyRecordName]
	r.IPInterface = options[KeyIPInterface]
	if v := options[KeyRecordType]; v != "" {
		r.RecordType = v
	}
	if v := options[KeyIPSource]; v != "" {
		r.IPSource = v
	}
	if v := options[KeyIPService]; v != "" {
		r.IPService = v
	}
	if v := options[KeyLogFile]; v != "" {
		r.LogFile = v
	}

	var err error
	if v := options[KeyTTL]; v != "" {
		if r.TTL, err = strconv.ParseUint(v, 10, 64); err != nil {
			return r, fmt.Errorf("%s: %w", KeyTTL, err)
		}
	}
	if v := options[KeyUpdateInterval]; v != "" {
		if r.UpdateInterval, err = strconv.ParseUint(v, 10, 64); err != nil {
			return r, fmt.Errorf("%s: %w", KeyUpdateInterval, err)
		}
	}
	return r, nil
}

// LoadRecord 从存储读取 cfddns.config
func LoadRecord(s *Store) (Record, error) {
	if err := s.Load(PackageName); err != nil {
		return Record{}, err
	}
	keys := []string{
		KeyEnabled, KeyEmail, KeyAPIKey, KeyZoneName, KeyRecordName, KeyRecordType,
		KeyIPSource, KeyIPService, KeyIPInterface, KeyTTL, KeyUpdateInterval, KeyLogFile,
	}
	options := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := s.Get(PackageName, SectionName, key)
		if errors.Is(err, ErrNoSection) {
			return DefaultRecord(), nil
		}
		if err != nil {
			return Record{}, err
		}
		options[key] = v
	}
	return RecordFromOptions(options)
}

// ActiveIPKey 当前生效的 IP 来源选项名
func (r Record) ActiveIPKey() string {
	if r.IPSource == IPSourceInterface {
		return KeyIPInterface
	}
	return KeyIPService
}

// CheckZone 记录名与区域名都填写时，检查记录名是否位于区域之内。
// 单标签的记录名（如 www）是相对区域的名字，总是在区域内
func (r Record) CheckZone() error {
	record := strings.TrimSuffix(strings.TrimSpace(r.RecordName), ".")
	if r.ZoneName == "" || record == "" || !strings.Contains(record, ".") {
		return nil
	}
	zone := dns.CanonicalName(strings.TrimSpace(r.ZoneName))
	name := dns.CanonicalName(record)
	if !dns.IsSubDomain(zone, name) {
		return fmt.Errorf("%s not in %s: %w", r.RecordName, r.ZoneName, ErrRecordOutsideZone)
	}
	return nil
}
