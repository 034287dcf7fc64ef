// 仿真核心的错误分类：语义错误与实现缺陷
package simerror

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "simerror")

// SemanticError 语义错误
// 功能：格式正确但引用了非法领域状态的请求（未知实体名、重复生成、非法车道等）
// 说明：总是携带出错的标识符，向上传递给场景驱动方，由其决定中止或判定失败
type SemanticError struct {
	Identifier string // 出错的标识符（实体名、车道ID等）
	Message    string // 错误描述
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("semantic error [%s]: %s", e.Identifier, e.Message)
}

// Semantic 创建语义错误
func Semantic(identifier string, format string, args ...any) error {
	return &SemanticError{Identifier: identifier, Message: fmt.Sprintf(format, args...)}
}

// NotExist 实体不存在
func NotExist(name string) error {
	return &SemanticError{Identifier: name, Message: fmt.Sprintf("entity : %s does not exist", name)}
}

// AlreadyExists 实体已存在
func AlreadyExists(name string) error {
	return &SemanticError{Identifier: name, Message: fmt.Sprintf("entity : %s is already exists", name)}
}

// IsSemantic 判断错误链中是否存在语义错误
func IsSemantic(err error) bool {
	var se *SemanticError
	return errors.As(err, &se)
}

// ImplementationFault 实现缺陷
// 功能：到达了声明但未实现的枚举组合分支
// 说明：致命错误，不应被捕获重试，只能以panic的形式抛出
type ImplementationFault struct {
	What string
}

func (e *ImplementationFault) Error() string {
	return "implementation fault: " + e.What
}

// Fault 记录并抛出实现缺陷
func Fault(format string, args ...any) {
	f := &ImplementationFault{What: fmt.Sprintf(format, args...)}
	log.Error(f.Error())
	panic(f)
}
