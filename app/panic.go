package app

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"ringos/hal"
	"ringos/kernel"
	"ringos/proto"
)

func installPanicHandler(k *kernel.Kernel, h hal.HAL, log zerolog.Logger) {
	k.SetPanicHandler(func(info kernel.PanicInfo) {
		log.Error().
			Str("task", taskName(info.Task)).
			Str("msg", proto.Name(info.MessageID)).
			Str("panic", fmt.Sprint(info.Value)).
			Msg("ringos panic")

		// Stack lines go to the raw sink, one per line.
		if l := h.Logger(); l != nil && len(info.Stack) > 0 {
			for _, line := range strings.Split(string(info.Stack), "\n") {
				if line == "" {
					continue
				}
				l.WriteLineString(line)
			}
		}

		disp := h.Display()
		if disp == nil {
			return
		}
		fb := disp.Framebuffer()
		if fb == nil {
			return
		}
		fb.ClearRGB(255, 0, 0)
		_ = fb.Present()
	})
}

func taskName(t kernel.Task) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%T", t)
}
