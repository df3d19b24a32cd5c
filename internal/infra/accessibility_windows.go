//go:build windows

package infra

import (
	"fmt"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// accCallTimeout bounds every accessibility lookup. MSAA calls proxy into
// the target application's accessibility server and hang when that app is
// not pumping messages; the caller gives up instead of stalling a decision.
const accCallTimeout = 750 * time.Millisecond

// comboChildScanLimit caps how many combobox children are inspected when
// looking for an editable text child.
const comboChildScanLimit = 16

// MSAAProvider resolves UI elements through Microsoft Active Accessibility.
// All COM calls run on one dedicated, COM-initialized OS thread; callers
// submit requests over a channel and time out rather than hang.
type MSAAProvider struct {
	logger  *zap.Logger
	reqs    chan accRequest
	quit    chan struct{}
	done    chan struct{}
	timeout time.Duration
}

type accRequest struct {
	fromPoint bool
	window    domain.Handle
	objectID  int32
	childID   int32
	pt        domain.Point
	reply     chan accReply
}

type accReply struct {
	elem domain.AccessibleElement
	err  error
}

// NewMSAAProvider creates the accessibility binding and starts its COM
// worker thread.
func NewMSAAProvider(logger *zap.Logger) (domain.AccessibilityProvider, error) {
	p := &MSAAProvider{
		logger:  logger,
		reqs:    make(chan accRequest),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		timeout: accCallTimeout,
	}
	go p.serve()
	return p, nil
}

func (p *MSAAProvider) ElementFromEvent(window domain.Handle, objectID, childID int32) (domain.AccessibleElement, error) {
	return p.call(accRequest{window: window, objectID: objectID, childID: childID})
}

func (p *MSAAProvider) ElementAtPoint(pt domain.Point) (domain.AccessibleElement, error) {
	return p.call(accRequest{fromPoint: true, pt: pt})
}

// Close stops the COM worker. Pending calls fail with a closed error.
func (p *MSAAProvider) Close() error {
	close(p.quit)
	<-p.done
	return nil
}

func (p *MSAAProvider) call(req accRequest) (domain.AccessibleElement, error) {
	req.reply = make(chan accReply, 1)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case p.reqs <- req:
	case <-timer.C:
		return domain.AccessibleElement{}, fmt.Errorf("accessibility worker busy for %v", p.timeout)
	case <-p.quit:
		return domain.AccessibleElement{}, fmt.Errorf("accessibility provider closed")
	}

	select {
	case rep := <-req.reply:
		return rep.elem, rep.err
	case <-timer.C:
		return domain.AccessibleElement{}, fmt.Errorf("accessibility call timed out after %v", p.timeout)
	}
}

// serve owns the COM apartment. Replies go through a buffered channel so an
// abandoned (timed out) request never blocks the worker.
func (p *MSAAProvider) serve() {
	runtime.LockOSThread()
	defer close(p.done)

	if err := ole.CoInitialize(0); err != nil {
		p.logger.Debug("com initialize", zap.Error(err))
	} else {
		defer ole.CoUninitialize()
	}
	p.logger.Debug("accessibility worker started")

	for {
		select {
		case <-p.quit:
			return
		case req := <-p.reqs:
			req.reply <- p.resolve(req)
		}
	}
}

func (p *MSAAProvider) resolve(req accRequest) accReply {
	var (
		acc   *ole.IDispatch
		child int32
		err   error
	)
	if req.fromPoint {
		acc, child, err = accessibleFromPoint(req.pt)
	} else {
		acc, child, err = accessibleFromEvent(req.window, req.objectID, req.childID)
	}
	if err != nil {
		return accReply{err: err}
	}
	defer acc.Release()
	return accReply{elem: readElement(acc, child)}
}

func accessibleFromEvent(window domain.Handle, objectID, childID int32) (*ole.IDispatch, int32, error) {
	var acc *ole.IDispatch
	var varChild ole.VARIANT
	ole.VariantInit(&varChild)
	hr, _, _ := procAccessibleObjectFromEvent.Call(
		uintptr(window),
		uintptr(uint32(objectID)),
		uintptr(uint32(childID)),
		uintptr(unsafe.Pointer(&acc)),
		uintptr(unsafe.Pointer(&varChild)),
	)
	if hr != 0 || acc == nil {
		return nil, 0, fmt.Errorf("accessible object from event: %v", ole.NewError(hr))
	}
	child := int32(CHILDID_SELF)
	if varChild.VT == ole.VT_I4 {
		child = int32(varChild.Val)
	}
	return acc, child, nil
}

func accessibleFromPoint(pt domain.Point) (*ole.IDispatch, int32, error) {
	var acc *ole.IDispatch
	var varChild ole.VARIANT
	ole.VariantInit(&varChild)
	hr, _, _ := procAccessibleObjectFromPoint.Call(
		packPoint(pt),
		uintptr(unsafe.Pointer(&acc)),
		uintptr(unsafe.Pointer(&varChild)),
	)
	if hr != 0 || acc == nil {
		return nil, 0, fmt.Errorf("accessible object from point: %v", ole.NewError(hr))
	}
	child := int32(CHILDID_SELF)
	if varChild.VT == ole.VT_I4 {
		child = int32(varChild.Val)
	}
	return acc, child, nil
}

// readElement pulls role, name, state and bounds for one element. Property
// reads that fail leave their zero value; classification downstream treats
// missing data as non-editable.
func readElement(acc *ole.IDispatch, child int32) domain.AccessibleElement {
	var elem domain.AccessibleElement

	role := accIntProp(acc, DISPID_ACC_ROLE, child)
	elem.Role = roleFromNative(role)

	state := accIntProp(acc, DISPID_ACC_STATE, child)
	elem.Password = state&STATE_SYSTEM_PROTECTED != 0
	elem.Readonly = state&STATE_SYSTEM_READONLY != 0
	elem.Focusable = state&STATE_SYSTEM_FOCUSABLE != 0

	elem.Name = accStringProp(acc, DISPID_ACC_NAME, child)
	_, elem.HasValue = accValueProp(acc, child)
	elem.Bounds = accLocation(acc, child)

	if elem.Role == domain.RoleCombobox {
		elem.EditableChild = hasEditableChild(acc)
	}
	return elem
}

func accIntProp(acc *ole.IDispatch, dispid int32, child int32) int64 {
	v, err := acc.Invoke(dispid, ole.DISPATCH_PROPERTYGET, child)
	if err != nil {
		return 0
	}
	defer v.Clear()
	if v.VT != ole.VT_I4 {
		return 0
	}
	return v.Val
}

func accStringProp(acc *ole.IDispatch, dispid int32, child int32) string {
	v, err := acc.Invoke(dispid, ole.DISPATCH_PROPERTYGET, child)
	if err != nil {
		return ""
	}
	defer v.Clear()
	if v.VT != ole.VT_BSTR {
		return ""
	}
	return v.ToString()
}

// accValueProp reports whether the element exposes a value interface at
// all. Protected fields deny the read; that still counts as not exposing a
// value here and the protected state bit carries the password signal.
func accValueProp(acc *ole.IDispatch, child int32) (string, bool) {
	v, err := acc.Invoke(DISPID_ACC_VALUE, ole.DISPATCH_PROPERTYGET, child)
	if err != nil {
		return "", false
	}
	defer v.Clear()
	if v.VT != ole.VT_BSTR {
		return "", false
	}
	return v.ToString(), true
}

// accLocation calls IAccessible::accLocation through the raw vtable; the
// method has four out parameters, which IDispatch::Invoke cannot marshal.
// Slot 22 follows the seven IUnknown/IDispatch entries and the fourteen
// IAccessible getters preceding it.
func accLocation(acc *ole.IDispatch, child int32) domain.Rect {
	var left, top, width, height int32
	varChild := ole.NewVariant(ole.VT_I4, int64(child))
	vtbl := (*[28]uintptr)(unsafe.Pointer(acc.RawVTable))
	hr, _, _ := syscall.SyscallN(vtbl[22],
		uintptr(unsafe.Pointer(acc)),
		uintptr(unsafe.Pointer(&left)),
		uintptr(unsafe.Pointer(&top)),
		uintptr(unsafe.Pointer(&width)),
		uintptr(unsafe.Pointer(&height)),
		uintptr(unsafe.Pointer(&varChild)),
	)
	if hr != 0 {
		return domain.Rect{}
	}
	return domain.Rect{Left: left, Top: top, Right: left + width, Bottom: top + height}
}

// hasEditableChild scans a combobox's direct children for a writable text
// element, the shape editable comboboxes take in MSAA.
func hasEditableChild(acc *ole.IDispatch) bool {
	count := accIntProp(acc, DISPID_ACC_CHILDCOUNT, CHILDID_SELF)
	if count <= 0 {
		return false
	}
	if count > comboChildScanLimit {
		count = comboChildScanLimit
	}

	children := make([]ole.VARIANT, count)
	var fetched int32
	hr, _, _ := procAccessibleChildren.Call(
		uintptr(unsafe.Pointer(acc)),
		0,
		uintptr(count),
		uintptr(unsafe.Pointer(&children[0])),
		uintptr(unsafe.Pointer(&fetched)),
	)
	if hr != 0 {
		return false
	}

	editable := false
	for i := int32(0); i < fetched && int(i) < len(children); i++ {
		v := &children[i]
		switch v.VT {
		case ole.VT_DISPATCH:
			if childAcc := v.ToIDispatch(); childAcc != nil && !editable {
				role := accIntProp(childAcc, DISPID_ACC_ROLE, CHILDID_SELF)
				state := accIntProp(childAcc, DISPID_ACC_STATE, CHILDID_SELF)
				editable = role == ROLE_SYSTEM_TEXT && state&STATE_SYSTEM_READONLY == 0
			}
		case ole.VT_I4:
			if !editable {
				id := int32(v.Val)
				role := accIntProp(acc, DISPID_ACC_ROLE, id)
				state := accIntProp(acc, DISPID_ACC_STATE, id)
				editable = role == ROLE_SYSTEM_TEXT && state&STATE_SYSTEM_READONLY == 0
			}
		}
		v.Clear()
	}
	return editable
}

func roleFromNative(role int64) domain.Role {
	switch role {
	case ROLE_SYSTEM_CARET:
		return domain.RoleCaret
	case ROLE_SYSTEM_TEXT:
		return domain.RoleText
	case ROLE_SYSTEM_DOCUMENT:
		return domain.RoleDocument
	case ROLE_SYSTEM_CLIENT:
		return domain.RoleClient
	case ROLE_SYSTEM_PANE:
		return domain.RolePane
	case ROLE_SYSTEM_COMBOBOX:
		return domain.RoleCombobox
	case ROLE_SYSTEM_WINDOW:
		return domain.RoleWindow
	case ROLE_SYSTEM_LIST:
		return domain.RoleList
	case ROLE_SYSTEM_PUSHBUTTON:
		return domain.RoleButton
	default:
		return domain.RoleUnknown
	}
}

// Ensure MSAAProvider implements domain.AccessibilityProvider.
var _ domain.AccessibilityProvider = (*MSAAProvider)(nil)
