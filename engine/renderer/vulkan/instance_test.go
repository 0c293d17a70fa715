package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"
)

func TestPlanInstance(t *testing.T) {
	required := []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}
	withReport := []string{"VK_KHR_surface", "VK_KHR_xcb_surface", vk.ExtDebugReportExtensionName}
	layers := []string{validationLayerName}

	t.Run("validation", func(t *testing.T) {
		plan := planInstance(required, withReport, layers, true, "linux")
		if !plan.debug {
			t.Fatal("debug callback not planned")
		}
		if !slices.Contains(plan.layers, validationLayerName) {
			t.Errorf("layers = %v, want validation layer", plan.layers)
		}
		if !slices.Contains(plan.extensions, vk.ExtDebugReportExtensionName) {
			t.Errorf("extensions = %v, want debug report", plan.extensions)
		}
		if plan.flags != 0 {
			t.Errorf("flags = %d, want 0", plan.flags)
		}
	})

	t.Run("validation disabled", func(t *testing.T) {
		plan := planInstance(required, withReport, layers, false, "linux")
		if plan.debug || len(plan.layers) != 0 || len(plan.extensions) != len(required) {
			t.Errorf("plan = %+v, want only required extensions", plan)
		}
	})

	t.Run("layer missing", func(t *testing.T) {
		plan := planInstance(required, withReport, nil, true, "linux")
		if plan.debug || len(plan.layers) != 0 {
			t.Errorf("plan = %+v, want validation skipped", plan)
		}
	})

	t.Run("debug report missing", func(t *testing.T) {
		plan := planInstance(required, required, layers, true, "linux")
		if plan.debug || slices.Contains(plan.extensions, vk.ExtDebugReportExtensionName) {
			t.Errorf("plan = %+v, want validation skipped", plan)
		}
	})

	t.Run("portability", func(t *testing.T) {
		available := append([]string{portabilityEnumerationExtension, physicalDeviceProperties2Extension}, required...)
		plan := planInstance(required, available, nil, false, "darwin")
		if !slices.Contains(plan.extensions, portabilityEnumerationExtension) {
			t.Errorf("extensions = %v, want portability enumeration", plan.extensions)
		}
		if plan.flags != instanceCreateEnumeratePortability {
			t.Errorf("flags = %d, want portability bit", plan.flags)
		}
	})

	t.Run("required untouched", func(t *testing.T) {
		in := append(make([]string, 0, 8), required...)
		planInstance(in, withReport, layers, true, "linux")
		if len(in) != len(required) {
			t.Errorf("required list grew to %v", in)
		}
	})
}
