// Package form 声明式配置表单：字段类型、校验、依赖显示，以及保存到配置存储
package form

import (
	"errors"
	"fmt"
	"sort"
)

// Kind 控件类型
type Kind string

const (
	KindFlag      Kind = "flag"
	KindValue     Kind = "value"
	KindListValue Kind = "list"
)

// Datatype 字段校验类型
type Datatype string

const (
	DatatypeString   Datatype = "string"
	DatatypeHostname Datatype = "hostname"
	DatatypeUInteger Datatype = "uinteger"
)

// PasswordMask 密码字段回显的占位值，提交该值表示保留原密码
const PasswordMask = "********"

var ErrInvalid = errors.New("invalid form values")

// Store 表单读写的配置存储
type Store interface {
	Load(pkg string) error
	Get(pkg, section, key string) (string, error)
	Apply(pkg, section, typ string, set map[string]string, unset []string) error
}

// Choice 下拉选项
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Option 一个表单字段
type Option struct {
	Name        string
	Title       string
	Description string
	Placeholder string
	Default     string
	Kind        Kind
	Datatype    Datatype
	Password    bool
	// RmEmpty 为 true 时空值从配置中删除
	RmEmpty bool
	Choices []Choice
	depends []map[string]string
}

// Value 添加下拉选项
func (o *Option) Value(value, label string) *Option {
	o.Choices = append(o.Choices, Choice{Value: value, Label: label})
	return o
}

// Depends 当 key 的值为 value 时才显示该字段；多次调用为“或”关系
func (o *Option) Depends(key, value string) *Option {
	o.depends = append(o.depends, map[string]string{key: value})
	return o
}

// Active 根据当前值判断字段是否显示
func (o *Option) Active(values map[string]string) bool {
	if len(o.depends) == 0 {
		return true
	}
	for _, dep := range o.depends {
		matched := true
		for key, want := range dep {
			if values[key] != want {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// Section 具名配置段
type Section struct {
	Name    string
	Type    string
	Options []*Option
}

// Option 新增字段，默认数据类型为 string，空值会被删除
func (s *Section) Option(kind Kind, name, title string) *Option {
	o := &Option{
		Name:     name,
		Title:    title,
		Kind:     kind,
		Datatype: DatatypeString,
		RmEmpty:  true,
	}
	s.Options = append(s.Options, o)
	return o
}

func (s *Section) option(name string) *Option {
	for _, o := range s.Options {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Map 一个配置包的表单
type Map struct {
	Package     string
	Title       string
	Description string
	Sections    []*Section

	store Store
}

// NewMap 创建表单
func NewMap(store Store, pkg, title, description string) *Map {
	return &Map{
		Package:     pkg,
		Title:       title,
		Description: description,
		store:       store,
	}
}

// Section 新增具名配置段
func (m *Map) Section(typ, name string) *Section {
	s := &Section{Name: name, Type: typ}
	m.Sections = append(m.Sections, s)
	return s
}

func (m *Map) section(name string) (*Section, error) {
	for _, s := range m.Sections {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("form %s: unknown section %s", m.Package, name)
}

// Load 加载配置包
func (m *Map) Load() error {
	return m.store.Load(m.Package)
}

// values 读取配置段的生效值，缺失的选项使用默认值
func (m *Map) values(s *Section) (map[string]string, error) {
	values := make(map[string]string, len(s.Options))
	for _, o := range s.Options {
		v, err := m.store.Get(m.Package, s.Name, o.Name)
		if err != nil && !isMissingSection(err) {
			return nil, err
		}
		if v == "" {
			v = o.Default
		}
		values[o.Name] = v
	}
	return values, nil
}

// Field 渲染用的字段
type Field struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Kind        Kind     `json:"kind"`
	Datatype    Datatype `json:"datatype"`
	Password    bool     `json:"password,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`
	Value       string   `json:"value"`
	Visible     bool     `json:"visible"`
	// Depends 前端切换显示用，字段名 -> 允许的值
	Depends []map[string]string `json:"depends,omitempty"`
}

// SectionView 渲染用的配置段
type SectionView struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// View 渲染用的表单
type View struct {
	Package     string        `json:"package"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Sections    []SectionView `json:"sections"`
}

// Render 按当前配置生成表单，密码字段只回显占位值
func (m *Map) Render() (View, error) {
	view := View{
		Package:     m.Package,
		Title:       m.Title,
		Description: m.Description,
	}
	for _, s := range m.Sections {
		values, err := m.values(s)
		if err != nil {
			return View{}, err
		}
		sv := SectionView{Name: s.Name}
		for _, o := range s.Options {
			value := values[o.Name]
			if o.Password && value != "" {
				value = PasswordMask
			}
			sv.Fields = append(sv.Fields, Field{
				Name:        o.Name,
				Title:       o.Title,
				Description: o.Description,
				Placeholder: o.Placeholder,
				Kind:        o.Kind,
				Datatype:    o.Datatype,
				Password:    o.Password,
				Choices:     o.Choices,
				Value:       value,
				Visible:     o.Active(values),
				Depends:     o.depends,
			})
		}
		view.Sections = append(view.Sections, sv)
	}
	return view, nil
}

// FieldErrors 字段名 -> 错误信息
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msg := ""
	for i, k := range keys {
		if i > 0 {
			msg += "; "
		}
		msg += k + ": " + e[k]
	}
	return msg
}

func (e FieldErrors) Unwrap() error {
	return ErrInvalid
}

// Save 合并提交的值、校验显示中的字段并写入存储。
// 隐藏的字段不写入也不删除，保留原值
func (m *Map) Save(section string, input map[string]string) error {
	s, err := m.section(section)
	if err != nil {
		return err
	}
	if err = m.store.Load(m.Package); err != nil {
		return err
	}
	stored, err := m.values(s)
	if err != nil {
		return err
	}

	values := make(map[string]string, len(stored))
	for k, v := range stored {
		values[k] = v
	}
	for k, v := range input {
		o := s.option(k)
		if o == nil {
			continue
		}
		if o.Password && v == PasswordMask {
			continue
		}
		values[k] = normalize(o, v)
	}

	errs := FieldErrors{}
	for _, o := range s.Options {
		if !o.Active(values) {
			continue
		}
		if msg := validateOption(o, values[o.Name]); msg != "" {
			errs[o.Name] = msg
		}
	}
	if len(errs) > 0 {
		return errs
	}

	set := map[string]string{}
	var unset []string
	for _, o := range s.Options {
		if !o.Active(values) {
			continue
		}
		v := values[o.Name]
		if v == "" && o.RmEmpty {
			unset = append(unset, o.Name)
			continue
		}
		set[o.Name] = v
	}
	return m.store.Apply(m.Package, s.Name, s.Type, set, unset)
}

// normalize 复选框统一为 0/1
func normalize(o *Option, v string) string {
	if o.Kind != KindFlag {
		return v
	}
	switch v {
	case "1", "true", "on", "yes":
		return "1"
	default:
		return "0"
	}
}
