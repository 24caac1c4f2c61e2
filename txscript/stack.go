// 实现脚本执行使用的数据栈及其双重类型的栈元素。

package txscript

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// asBool 获取字节数组的布尔值。
// 全零为 false，仅最高字节为 0x80 的负零也为 false。
func asBool(t []byte) bool {
	for i := range t {
		if t[i] != 0 {
			// Negative 0 is also considered false.
			if i == len(t)-1 && t[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

// fromBool 将布尔值转换为适当的字节数组。
func fromBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return nil
}

// Entry 是栈上的一个元素。
// 它要么是不透明的字节串，要么是数值；数值的规范编码在首次需要时计算并缓存。
type Entry struct {
	data    []byte
	num     int64
	isNum   bool
	encoded bool
}

// NewBytesEntry 返回持有给定字节的栈元素。调用方不得再修改 data。
func NewBytesEntry(data []byte) *Entry {
	return &Entry{data: data, encoded: true}
}

// NewNumEntry 返回持有给定数值的栈元素。
func NewNumEntry(n int64) *Entry {
	return &Entry{num: n, isNum: true}
}

// IsNum 返回元素是否以数值形式保存。
func (e *Entry) IsNum() bool {
	return e.isNum
}

// Bytes 返回元素的字节表示，数值元素返回其规范编码。
func (e *Entry) Bytes() []byte {
	if !e.encoded {
		e.data = scriptNum(e.num).Bytes()
		e.encoded = true
	}
	return e.data
}

// AsBool 按脚本的真值规则解释元素。
func (e *Entry) AsBool() bool {
	if e.isNum {
		return e.num != 0
	}
	return asBool(e.data)
}

// Value 将元素解释为数值。
// 编码长度超过 maxLen 时返回 ErrNumberTooBig，requireMinimal 为 true 时非最短编码返回 ErrMinimalScriptNum。
func (e *Entry) Value(requireMinimal bool, maxLen int) (int64, error) {
	if e.isNum {
		// 规范编码总是最短的，只需检查长度。
		if b := e.Bytes(); len(b) > maxLen {
			str := fmt.Sprintf("numeric value %d is %d bytes which "+
				"exceeds the max allowed of %d", e.num, len(b), maxLen)
			return 0, scriptError(ErrNumberTooBig, str)
		}
		return e.num, nil
	}

	n, err := MakeScriptNum(e.data, requireMinimal, maxLen)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// Equal 按语义值比较两个元素，与保存形式无关。
func (e *Entry) Equal(other *Entry) bool {
	if e.isNum && other.isNum {
		return e.num == other.num
	}
	return bytes.Equal(e.Bytes(), other.Bytes())
}

// clone 返回元素的副本。底层字节不会被修改，因此可以共享。
func (e *Entry) clone() *Entry {
	c := *e
	return &c
}

// Stack 表示与脚本一起使用的栈。
// 下标从栈底开始为 0，负数下标从栈顶开始，-1 为栈顶。
type Stack struct {
	stk               []*Entry
	verifyMinimalData bool
}

// NewStack 使用给定的元素（栈底在前）创建一个栈。
func NewStack(items [][]byte) *Stack {
	s := &Stack{stk: make([]*Entry, 0, len(items))}
	for _, item := range items {
		s.PushByteArray(item)
	}
	return s
}

// Depth 返回栈上的元素数。
func (s *Stack) Depth() int {
	return len(s.stk)
}

// index 把从栈底或栈顶计算的下标转换为切片下标。
func (s *Stack) index(idx int) (int, error) {
	i := idx
	if idx < 0 {
		i = len(s.stk) + idx
	}
	if i < 0 || i >= len(s.stk) {
		str := fmt.Sprintf("index %d is invalid for stack size %d", idx,
			len(s.stk))
		return 0, scriptError(ErrInvalidStackOperation, str)
	}
	return i, nil
}

// Push 将元素压入栈顶。
//
// 堆栈转换: [... x1 x2] -> [... x1 x2 e]
func (s *Stack) Push(e *Entry) {
	s.stk = append(s.stk, e)
}

// PushByteArray 将给定的字节数组添加到栈顶。
//
// 堆栈转换: [... x1 x2] -> [... x1 x2 data]
func (s *Stack) PushByteArray(so []byte) {
	s.Push(NewBytesEntry(so))
}

// PushInt 将数值压入栈顶。
//
// 堆栈转换: [... x1 x2] -> [... x1 x2 int]
func (s *Stack) PushInt(val scriptNum) {
	s.Push(NewNumEntry(int64(val)))
}

// PushBool 将布尔值压入栈顶。
//
// 堆栈转换: [... x1 x2] -> [... x1 x2 bool]
func (s *Stack) PushBool(val bool) {
	s.PushByteArray(fromBool(val))
}

// Pop 弹出并返回栈顶元素。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x2]
func (s *Stack) Pop() (*Entry, error) {
	return s.Remove(-1)
}

// PopByteArray 弹出栈顶元素并返回其字节。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x2]
func (s *Stack) PopByteArray() ([]byte, error) {
	e, err := s.Pop()
	if err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// PopInt 弹出栈顶元素并按 4 字节数值规则解释。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x2]
func (s *Stack) PopInt() (scriptNum, error) {
	e, err := s.Pop()
	if err != nil {
		return 0, err
	}
	n, err := e.Value(s.verifyMinimalData, maxScriptNumLen)
	return scriptNum(n), err
}

// PopBool 弹出栈顶元素并按真值规则解释。
//
// 堆栈转换: [... x1 x2 x3] -> [... x1 x2]
func (s *Stack) PopBool() (bool, error) {
	e, err := s.Pop()
	if err != nil {
		return false, err
	}
	return e.AsBool(), nil
}

// Peek 返回给定下标处的元素，不修改栈。
func (s *Stack) Peek(idx int) (*Entry, error) {
	i, err := s.index(idx)
	if err != nil {
		return nil, err
	}
	return s.stk[i], nil
}

// PeekByteArray 返回距栈顶 idx 处（0 为栈顶）元素的字节。
func (s *Stack) PeekByteArray(idx int) ([]byte, error) {
	e, err := s.Peek(-1 - idx)
	if err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// PeekInt 返回距栈顶 idx 处（0 为栈顶）元素的数值。
func (s *Stack) PeekInt(idx int) (scriptNum, error) {
	e, err := s.Peek(-1 - idx)
	if err != nil {
		return 0, err
	}
	n, err := e.Value(s.verifyMinimalData, maxScriptNumLen)
	return scriptNum(n), err
}

// PeekBool 返回距栈顶 idx 处（0 为栈顶）元素的真值。
func (s *Stack) PeekBool(idx int) (bool, error) {
	e, err := s.Peek(-1 - idx)
	if err != nil {
		return false, err
	}
	return e.AsBool(), nil
}

// Dup 复制给定下标处的元素并压入栈顶。
func (s *Stack) Dup(idx int) error {
	e, err := s.Peek(idx)
	if err != nil {
		return err
	}
	s.Push(e.clone())
	return nil
}

// Remove 移除并返回给定下标处的元素。
func (s *Stack) Remove(idx int) (*Entry, error) {
	i, err := s.index(idx)
	if err != nil {
		return nil, err
	}
	e := s.stk[i]
	copy(s.stk[i:], s.stk[i+1:])
	s.stk[len(s.stk)-1] = nil
	s.stk = s.stk[:len(s.stk)-1]
	return e, nil
}

// Swap 交换两个下标处的元素。
func (s *Stack) Swap(i, j int) error {
	a, err := s.index(i)
	if err != nil {
		return err
	}
	b, err := s.index(j)
	if err != nil {
		return err
	}
	s.stk[a], s.stk[b] = s.stk[b], s.stk[a]
	return nil
}

// Truncate 只保留栈底的 n 个元素。
func (s *Stack) Truncate(n int) {
	if n < 0 || n >= len(s.stk) {
		return
	}
	for i := n; i < len(s.stk); i++ {
		s.stk[i] = nil
	}
	s.stk = s.stk[:n]
}

// Clone 返回栈的副本，用于 P2SH 赎回前保存签名脚本执行后的状态。
func (s *Stack) Clone() *Stack {
	c := &Stack{
		stk:               make([]*Entry, len(s.stk)),
		verifyMinimalData: s.verifyMinimalData,
	}
	for i, e := range s.stk {
		c.stk[i] = e.clone()
	}
	return c
}

// Items 以栈底在前的顺序返回所有元素的字节。
func (s *Stack) Items() [][]byte {
	items := make([][]byte, len(s.stk))
	for i, e := range s.stk {
		items[i] = e.Bytes()
	}
	return items
}

// nipN 移除并返回距栈顶 idx 处的元素。
//
// 堆栈转换:
// nipN(0): [... x1 x2 x3] -> [... x1 x2]
// nipN(1): [... x1 x2 x3] -> [... x1 x3]
// nipN(2): [... x1 x2 x3] -> [... x2 x3]
func (s *Stack) nipN(idx int) (*Entry, error) {
	if err := s.checkFromTop(idx); err != nil {
		return nil, err
	}
	return s.Remove(-1 - idx)
}

// checkFromTop 拒绝负的距栈顶距离。
func (s *Stack) checkFromTop(n int) error {
	if n < 0 {
		str := fmt.Sprintf("negative depth %d is invalid for stack size %d",
			n, len(s.stk))
		return scriptError(ErrInvalidStackOperation, str)
	}
	return nil
}

// NipN 移除距栈顶 idx 处的元素。
func (s *Stack) NipN(idx int) error {
	_, err := s.nipN(idx)
	return err
}

// Tuck 将栈顶元素复制并插入到倒数第二个元素之前。
//
// 堆栈转换: [... x1 x2] -> [... x2 x1 x2]
func (s *Stack) Tuck() error {
	if len(s.stk) < 2 {
		str := fmt.Sprintf("attempt to tuck with stack size %d", len(s.stk))
		return scriptError(ErrInvalidStackOperation, str)
	}
	top := s.stk[len(s.stk)-1]
	s.stk = append(s.stk, nil)
	copy(s.stk[len(s.stk)-2:], s.stk[len(s.stk)-3:len(s.stk)-1])
	s.stk[len(s.stk)-3] = top.clone()
	return nil
}

// checkDepth 确保栈上至少有 n 个元素。
func (s *Stack) checkDepth(n int, op string) error {
	if n < 0 || len(s.stk) < n {
		str := fmt.Sprintf("attempt to %s %d items on a stack with %d "+
			"items", op, n, len(s.stk))
		return scriptError(ErrInvalidStackOperation, str)
	}
	return nil
}

// DropN 从栈中移除顶部 n 个元素。
//
// 堆栈转换:
// DropN(1): [... x1 x2] -> [... x1]
// DropN(2): [... x1 x2] -> [...]
func (s *Stack) DropN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to drop %d items from stack", n)
		return scriptError(ErrInvalidStackOperation, str)
	}
	if err := s.checkDepth(n, "drop"); err != nil {
		return err
	}
	s.Truncate(len(s.stk) - n)
	return nil
}

// DupN 复制栈顶 n 个元素。
//
// 堆栈转换:
// DupN(1): [... x1 x2] -> [... x1 x2 x2]
// DupN(2): [... x1 x2] -> [... x1 x2 x1 x2]
func (s *Stack) DupN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to dup %d stack items", n)
		return scriptError(ErrInvalidStackOperation, str)
	}
	if err := s.checkDepth(n, "dup"); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := s.Dup(-n); err != nil {
			return err
		}
	}
	return nil
}

// RotN 将栈顶 3n 个元素向左轮换 n 个位置。
//
// 堆栈转换:
// RotN(1): [... x1 x2 x3] -> [... x2 x3 x1]
// RotN(2): [... x1 x2 x3 x4 x5 x6] -> [... x3 x4 x5 x6 x1 x2]
func (s *Stack) RotN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to rotate %d stack items", n)
		return scriptError(ErrInvalidStackOperation, str)
	}
	entry := 3*n - 1
	if err := s.checkDepth(entry+1, "rotate"); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		e, err := s.nipN(entry)
		if err != nil {
			return err
		}
		s.Push(e)
	}
	return nil
}

// SwapN 将栈顶 n 个元素与其下方的 n 个元素交换。
//
// 堆栈转换:
// SwapN(1): [... x1 x2] -> [... x2 x1]
// SwapN(2): [... x1 x2 x3 x4] -> [... x3 x4 x1 x2]
func (s *Stack) SwapN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to swap %d stack items", n)
		return scriptError(ErrInvalidStackOperation, str)
	}
	entry := 2*n - 1
	if err := s.checkDepth(entry+1, "swap"); err != nil {
		return err
	}
	for i := n; i > 0; i-- {
		e, err := s.nipN(entry)
		if err != nil {
			return err
		}
		s.Push(e)
	}
	return nil
}

// OverN 将栈顶以下的 n 个元素复制到栈顶。
//
// 堆栈转换:
// OverN(1): [... x1 x2 x3] -> [... x1 x2 x3 x2]
// OverN(2): [... x1 x2 x3 x4] -> [... x1 x2 x3 x4 x1 x2]
func (s *Stack) OverN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to perform over on %d stack items", n)
		return scriptError(ErrInvalidStackOperation, str)
	}
	entry := 2*n - 1
	if err := s.checkDepth(entry+1, "over"); err != nil {
		return err
	}
	for ; n > 0; n-- {
		if err := s.Dup(-1 - entry); err != nil {
			return err
		}
	}
	return nil
}

// PickN 将距栈顶 n 处的元素复制到栈顶。
//
// 堆栈转换:
// PickN(0): [x1 x2 x3] -> [x1 x2 x3 x3]
// PickN(1): [x1 x2 x3] -> [x1 x2 x3 x2]
// PickN(2): [x1 x2 x3] -> [x1 x2 x3 x1]
func (s *Stack) PickN(n int) error {
	if err := s.checkFromTop(n); err != nil {
		return err
	}
	return s.Dup(-1 - n)
}

// RollN 将距栈顶 n 处的元素移动到栈顶。
//
// 堆栈转换:
// RollN(0): [x1 x2 x3] -> [x1 x2 x3]
// RollN(1): [x1 x2 x3] -> [x1 x3 x2]
// RollN(2): [x1 x2 x3] -> [x2 x3 x1]
func (s *Stack) RollN(n int) error {
	e, err := s.nipN(n)
	if err != nil {
		return err
	}
	s.Push(e)
	return nil
}

// String 以人类可读的格式返回栈。
func (s *Stack) String() string {
	var result string
	for _, e := range s.stk {
		if len(e.Bytes()) == 0 {
			result += "00000000  <empty>\n"
		}
		result += hex.Dump(e.Bytes())
	}
	return result
}
