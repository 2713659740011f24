package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cxbdasheng/cfddns/helper"
	"gopkg.in/yaml.v3"
)

const PathENV = "CFDDNS_CONFIG_DIR"

var (
	ErrNotLoaded = errors.New("package not loaded")
	ErrNoSection = errors.New("section not found")
)

// GetConfigDirDefault 默认配置目录
func GetConfigDirDefault() string {
	return "/etc/cfddns"
}

// GetConfigDir 获得配置目录，环境变量优先
func GetConfigDir() string {
	dir := os.Getenv(PathENV)
	if dir != "" {
		return dir
	}
	return GetConfigDirDefault()
}

// Section 一个具名配置段
type Section struct {
	Name    string            `yaml:"name"`
	Type    string            `yaml:"type"`
	Options map[string]string `yaml:"options,omitempty"`
}

// Package 一个配置包，对应一个 yaml 文件
type Package struct {
	Sections []Section `yaml:"sections"`
}

func (p *Package) section(name string) *Section {
	for i := range p.Sections {
		if p.Sections[i].Name == name {
			return &p.Sections[i]
		}
	}
	return nil
}

func (p *Package) clone() *Package {
	c := &Package{Sections: make([]Section, len(p.Sections))}
	for i, s := range p.Sections {
		c.Sections[i] = Section{Name: s.Name, Type: s.Type, Options: make(map[string]string, len(s.Options))}
		for k, v := range s.Options {
			c.Sections[i].Options[k] = v
		}
	}
	return c
}

// packageCache 已加载的配置包
type packageCache struct {
	committed *Package
	working   *Package
	dirty     bool
	modTime   time.Time
}

// Store 按包存储的配置，每个包保存为 <dir>/<package>.yaml
type Store struct {
	mu       sync.RWMutex
	dir      string
	packages map[string]*packageCache
}

// NewStore 创建配置存储
func NewStore(dir string) *Store {
	return &Store{
		dir:      dir,
		packages: make(map[string]*packageCache),
	}
}

// Dir 配置目录
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(pkg string) string {
	return filepath.Join(s.dir, pkg+".yaml")
}

// Load 加载配置包。文件未变化时使用缓存；存在未提交的修改时不重新读取
func (s *Store) Load(pkg string) error {
	configFilePath := s.path(pkg)

	s.mu.RLock()
	cached, ok := s.packages[pkg]
	if ok {
		if cached.dirty {
			s.mu.RUnlock()
			return nil
		}
		if stat, err := os.Stat(configFilePath); err == nil && !stat.ModTime().After(cached.modTime) {
			s.mu.RUnlock()
			return nil
		}
	}
	s.mu.RUnlock()

	return s.reload(pkg)
}

// reload 从文件读取配置包
func (s *Store) reload(pkg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configFilePath := s.path(pkg)
	p := &Package{}
	var modTime time.Time

	stat, err := os.Stat(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// 首次运行，配置文件尚不存在
	case err != nil:
		return fmt.Errorf("load %s: %w", pkg, err)
	default:
		modTime = stat.ModTime()
		data, err := os.ReadFile(configFilePath)
		if err != nil {
			return fmt.Errorf("load %s: %w", pkg, err)
		}
		if err = yaml.Unmarshal(data, p); err != nil {
			return fmt.Errorf("parse %s: %w", pkg, err)
		}
	}

	s.packages[pkg] = &packageCache{
		committed: p,
		working:   p.clone(),
		modTime:   modTime,
	}
	return nil
}

// Get 读取选项值，选项不存在时返回空字符串
func (s *Store) Get(pkg, section, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached, ok := s.packages[pkg]
	if !ok {
		return "", fmt.Errorf("%s: %w", pkg, ErrNotLoaded)
	}
	sec := cached.working.section(section)
	if sec == nil {
		return "", fmt.Errorf("%s.%s: %w", pkg, section, ErrNoSection)
	}
	return sec.Options[key], nil
}

// SectionType 返回配置段类型
func (s *Store) SectionType(pkg, section string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached, ok := s.packages[pkg]
	if !ok {
		return "", fmt.Errorf("%s: %w", pkg, ErrNotLoaded)
	}
	sec := cached.working.section(section)
	if sec == nil {
		return "", fmt.Errorf("%s.%s: %w", pkg, section, ErrNoSection)
	}
	return sec.Type, nil
}

// Apply 在同一把锁内暂存并提交一组修改，section 不存在时按 typ 新建。
// 提交失败时丢弃本次修改
func (s *Store) Apply(pkg, section, typ string, set map[string]string, unset []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.add(pkg, section, typ)
	for key, value := range set {
		if err != nil {
			break
		}
		err = s.set(pkg, section, key, value)
	}
	for _, key := range unset {
		if err != nil {
			break
		}
		err = s.unset(pkg, section, key)
	}
	if err == nil {
		err = s.commit(pkg)
	}
	if err != nil {
		s.revert(pkg)
		return err
	}
	return nil
}

// 以下方法由调用方持有 s.mu

// add 新增具名配置段，已存在时不做修改
func (s *Store) add(pkg, section, typ string) error {
	cached, ok := s.packages[pkg]
	if !ok {
		return fmt.Errorf("%s: %w", pkg, ErrNotLoaded)
	}
	if cached.working.section(section) != nil {
		return nil
	}
	cached.working.Sections = append(cached.working.Sections, Section{
		Name:    section,
		Type:    typ,
		Options: map[string]string{},
	})
	cached.dirty = true
	return nil
}

// set 暂存选项修改
func (s *Store) set(pkg, section, key, value string) error {
	cached, ok := s.packages[pkg]
	if !ok {
		return fmt.Errorf("%s: %w", pkg, ErrNotLoaded)
	}
	sec := cached.working.section(section)
	if sec == nil {
		return fmt.Errorf("%s.%s: %w", pkg, section, ErrNoSection)
	}
	if sec.Options == nil {
		sec.Options = map[string]string{}
	}
	if current, exists := sec.Options[key]; exists && current == value {
		return nil
	}
	sec.Options[key] = value
	cached.dirty = true
	return nil
}

// unset 暂存删除选项
func (s *Store) unset(pkg, section, key string) error {
	cached, ok := s.packages[pkg]
	if !ok {
		return fmt.Errorf("%s: %w", pkg, ErrNotLoaded)
	}
	sec := cached.working.section(section)
	if sec == nil {
		return fmt.Errorf("%s.%s: %w", pkg, section, ErrNoSection)
	}
	if _, exists := sec.Options[key]; !exists {
		return nil
	}
	delete(sec.Options, key)
	cached.dirty = true
	return nil
}

// changed 是否存在未提交的修改
func (s *Store) changed(pkg string) bool {
	cached, ok := s.packages[pkg]
	return ok && cached.dirty
}

// revert 丢弃未提交的修改
func (s *Store) revert(pkg string) {
	if cached, ok := s.packages[pkg]; ok {
		cached.working = cached.committed.clone()
		cached.dirty = false
	}
}

// commit 把暂存的修改原子写入文件
func (s *Store) commit(pkg string) error {
	cached, ok := s.packages[pkg]
	if !ok {
		return fmt.Errorf("%s: %w", pkg, ErrNotLoaded)
	}
	if !cached.dirty {
		return nil
	}

	data, err := yaml.Marshal(cached.working)
	if err != nil {
		helper.Error(helper.LogTypeConfig, "序列化配置失败: %v", err)
		return err
	}

	if err = os.MkdirAll(s.dir, 0755); err != nil {
		helper.Error(helper.LogTypeConfig, "创建配置目录失败: %v", err)
		return err
	}

	configFilePath := s.path(pkg)
	tmp, err := os.CreateTemp(s.dir, "."+pkg+"-*")
	if err != nil {
		helper.Error(helper.LogTypeConfig, "写入配置文件失败: %v", err)
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Chmod(0600)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), configFilePath)
	}
	if err != nil {
		helper.Error(helper.LogTypeConfig, "写入配置文件失败: %v", err)
		return err
	}

	cached.committed = cached.working.clone()
	cached.dirty = false
	if stat, err := os.Stat(configFilePath); err == nil {
		cached.modTime = stat.ModTime()
	}
	helper.Info(helper.LogTypeConfig, "配置文件已保存在: %s", configFilePath)
	return nil
}
