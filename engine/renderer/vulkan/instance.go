package vulkan

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/triangle/engine/core"
	"golang.org/x/exp/slices"
)

const (
	validationLayerName                = "VK_LAYER_KHRONOS_validation"
	portabilityEnumerationExtension    = "VK_KHR_portability_enumeration"
	physicalDeviceProperties2Extension = "VK_KHR_get_physical_device_properties2"
	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	instanceCreateEnumeratePortability = 0x00000001
)

var (
	loaderOnce sync.Once
	loaderErr  error
)

// initLoader points the bindings at the loader entry point once per process.
func initLoader(procAddr unsafe.Pointer) error {
	loaderOnce.Do(func() {
		if procAddr == nil {
			loaderErr = core.ErrNoVulkan
			return
		}
		vk.SetGetInstanceProcAddr(procAddr)
		loaderErr = vk.Init()
	})
	return loaderErr
}

type instancePlan struct {
	extensions []string
	layers     []string
	debug      bool
	flags      vk.InstanceCreateFlags
}

// planInstance decides which extensions and layers to enable. Validation is
// only turned on when both the layer and the debug report extension exist.
func planInstance(required, availableExtensions, availableLayers []string, validation bool, goos string) instancePlan {
	plan := instancePlan{
		extensions: append([]string(nil), required...),
	}
	if goos == "darwin" && slices.Contains(availableExtensions, portabilityEnumerationExtension) {
		plan.extensions = append(plan.extensions, portabilityEnumerationExtension)
		if slices.Contains(availableExtensions, physicalDeviceProperties2Extension) {
			plan.extensions = append(plan.extensions, physicalDeviceProperties2Extension)
		}
		plan.flags |= instanceCreateEnumeratePortability
	}
	if validation {
		hasLayer := slices.Contains(availableLayers, validationLayerName)
		hasReport := slices.Contains(availableExtensions, vk.ExtDebugReportExtensionName)
		if hasLayer && hasReport {
			plan.layers = append(plan.layers, validationLayerName)
			plan.extensions = append(plan.extensions, vk.ExtDebugReportExtensionName)
			plan.debug = true
		}
	}
	return plan
}

func instanceExtensionNames() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceExtensionProperties("", &count, nil); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceExtensionProperties failed with %s", VulkanResultString(res, true))
	}
	properties := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateInstanceExtensionProperties("", &count, properties); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceExtensionProperties failed with %s", VulkanResultString(res, true))
	}
	names := make([]string, 0, count)
	for i := range properties[:count] {
		properties[i].Deref()
		names = append(names, vk.ToString(properties[i].ExtensionName[:]))
	}
	return names, nil
}

func instanceLayerNames() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res, true))
	}
	properties := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, properties); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res, true))
	}
	names := make([]string, 0, count)
	for i := range properties[:count] {
		properties[i].Deref()
		names = append(names, vk.ToString(properties[i].LayerName[:]))
	}
	return names, nil
}

func createInstance(context *GraphicsContext, window Window, appName string, validation bool) error {
	if err := initLoader(window.GetInstanceProcAddress()); err != nil {
		err = fmt.Errorf("failed to initialize the Vulkan loader: %w", err)
		core.LogError("%s", err)
		return err
	}

	availableExtensions, err := instanceExtensionNames()
	if err != nil {
		core.LogError("%s", err)
		return err
	}
	availableLayers, err := instanceLayerNames()
	if err != nil {
		core.LogError("%s", err)
		return err
	}

	plan := planInstance(window.GetRequiredExtensionNames(), availableExtensions, availableLayers, validation, runtime.GOOS)
	if validation && !plan.debug {
		core.LogWarn("Validation requested but %s is not available.", validationLayerName)
	}
	for _, e := range plan.extensions {
		core.LogDebug("Instance extension: %s", e)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Triangle"),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		Flags:                   plan.flags,
		EnabledExtensionCount:   uint32(len(plan.extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(plan.extensions),
		EnabledLayerCount:       uint32(len(plan.layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(plan.layers),
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, context.Allocator, &instance); res != vk.Success {
		return context.resultError("vkCreateInstance", res)
	}
	context.Instance = instance
	if err := vk.InitInstance(context.Instance); err != nil {
		core.LogError("%s", err)
		return err
	}
	core.LogDebug("Vulkan Instance created.")

	if plan.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType: vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit),
			PfnCallback: context.errorScopes.debugReportCallback,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		context.debugCallback = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}
