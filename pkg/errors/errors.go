// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの例外・警告システムにインスパイアされており、コンパイルパイプラインの
// 各段階（モデル検証・コード生成・ネイティブコンパイル・ロード・推論）ごとに
// 構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("compiledtrees-Warning: %v\n", w)
	}
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// これにより、DataConversionWarningなどの警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// Warn は警告を発生させます。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	scikit-learn互換の警告型
//
// ===========================================================================

// DataConversionWarning はデータの型が暗黙的に変換された場合に発生する警告です。
// float64の行列をfloat32のネイティブ評価器に渡した場合などに発生します。
type DataConversionWarning struct {
	FromType string
	ToType   string
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("data converted from %s to %s. Reason: %s", w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(from, to, reason string) *DataConversionWarning {
	return &DataConversionWarning{FromType: from, ToType: to, Reason: reason}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotCompilableError はサポート外のモデルをコンパイルしようとした場合のエラーです。
// 対応しているのは単一の回帰木と加法的な木アンサンブルのみです。
type NotCompilableError struct {
	ModelType string
	Reason    string
}

func (e *NotCompilableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("compiledtrees: model %s cannot be compiled: %s", e.ModelType, e.Reason)
	}
	return fmt.Sprintf("compiledtrees: model %s cannot be compiled", e.ModelType)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotCompilableError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_type", e.ModelType).
		Str("reason", e.Reason).
		Str("type", "NotCompilableError")
}

// NewNotCompilableError は新しいNotCompilableErrorを作成し、スタックトレースを付与します。
func NewNotCompilableError(modelType, reason string) error {
	err := &NotCompilableError{ModelType: modelType, Reason: reason}
	return errors.WithStack(err)
}

// InvariantError は木構造のIRが構造的不変条件に違反している場合のエラーです。
// 不正な子ノードID、範囲外の特徴量インデックスなど、抽出側のバグを示します。
type InvariantError struct {
	Op     string
	Node   int
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("compiledtrees: %s: structural invariant violated at node %d: %s", e.Op, e.Node, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvariantError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("node", e.Node).
		Str("reason", e.Reason).
		Str("type", "InvariantError")
}

// NewInvariantError は新しいInvariantErrorを作成し、スタックトレースを付与します。
func NewInvariantError(op string, node int, reason string) error {
	err := &InvariantError{Op: op, Node: node, Reason: reason}
	return errors.WithStack(err)
}

// CompileError は外部のネイティブコンパイラの起動または実行が失敗した場合のエラーです。
// コンパイラの診断出力をそのまま保持します。
type CompileError struct {
	Compiler string
	Output   string
	Err      error
}

func (e *CompileError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("compiledtrees: %s failed: %v\n%s", e.Compiler, e.Err, e.Output)
	}
	return fmt.Sprintf("compiledtrees: %s failed: %v", e.Compiler, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *CompileError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("compiler", e.Compiler).
		Str("output", e.Output).
		Str("type", "CompileError")
}

// NewCompileError は新しいCompileErrorを作成し、スタックトレースを付与します。
func NewCompileError(compiler, output string, cause error) error {
	err := &CompileError{Compiler: compiler, Output: output, Err: cause}
	return errors.WithStack(err)
}

// LoadError はコンパイル済みモジュールのロードまたはシンボル解決が失敗した場合のエラーです。
type LoadError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("compiledtrees: failed to resolve %q in module %s: %v", e.Symbol, e.Path, e.Err)
	}
	return fmt.Sprintf("compiledtrees: failed to load module %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *LoadError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("symbol", e.Symbol).
		Str("type", "LoadError")
}

// NewLoadError は新しいLoadErrorを作成し、スタックトレースを付与します。
func NewLoadError(path, symbol string, cause error) error {
	err := &LoadError{Path: path, Symbol: symbol, Err: cause}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("compiledtrees: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("compiledtrees: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}
