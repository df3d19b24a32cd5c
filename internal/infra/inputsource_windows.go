//go:build windows

package infra

import (
	"unsafe"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// InputSourceImpl classifies the input message currently being processed
// via GetCurrentInputMessageSource. The API reports for the calling
// thread; away from a message-processing thread it reports unavailable,
// which downstream treats as "correlate before trusting".
type InputSourceImpl struct{}

// NewInputSource creates the native input source classifier.
func NewInputSource() (domain.InputSourceProvider, error) {
	return &InputSourceImpl{}, nil
}

func (s *InputSourceImpl) CurrentSource() domain.InputSourceVerdict {
	var src inputMessageSource
	ret, _, _ := procGetCurrentInputMessageSource.Call(uintptr(unsafe.Pointer(&src)))
	if ret == 0 {
		return domain.InputSourceVerdict{}
	}
	return domain.InputSourceVerdict{
		Origin: originFromNative(src.OriginID),
		Device: deviceFromNative(src.DeviceType),
	}
}

func originFromNative(origin uint32) domain.SourceOrigin {
	switch origin {
	case IMO_HARDWARE:
		return domain.SourceHardware
	case IMO_INJECTED:
		return domain.SourceInjected
	case IMO_SYSTEM:
		return domain.SourceSystem
	default:
		return domain.SourceUnavailable
	}
}

func deviceFromNative(device uint32) domain.DeviceType {
	switch device {
	case IMDT_KEYBOARD:
		return domain.DeviceKeyboard
	case IMDT_MOUSE:
		return domain.DeviceMouse
	case IMDT_TOUCH:
		return domain.DeviceTouch
	case IMDT_PEN:
		return domain.DevicePen
	case IMDT_TOUCHPAD:
		return domain.DeviceTouchpad
	default:
		return domain.DeviceUnknown
	}
}

// Ensure InputSourceImpl implements domain.InputSourceProvider.
var _ domain.InputSourceProvider = (*InputSourceImpl)(nil)
