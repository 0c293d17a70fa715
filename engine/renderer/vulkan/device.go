package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/triangle/engine/core"
	"golang.org/x/exp/slices"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Info   AdapterInfo
	Memory vk.PhysicalDeviceMemoryProperties
}

// PowerPreference orders the adapter types when more than one can drive the
// surface.
type PowerPreference int

const (
	PowerPreferenceLowPower PowerPreference = iota
	PowerPreferenceHighPerformance
)

func ParsePowerPreference(s string) (PowerPreference, error) {
	switch s {
	case "low-power", "":
		return PowerPreferenceLowPower, nil
	case "high-performance":
		return PowerPreferenceHighPerformance, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownPowerPreference, s)
	}
}

func (p PowerPreference) String() string {
	if p == PowerPreferenceHighPerformance {
		return "high-performance"
	}
	return "low-power"
}

type AdapterInfo struct {
	Name          string
	Type          vk.PhysicalDeviceType
	VendorID      uint32
	DeviceID      uint32
	DriverVersion uint32
	APIVersion    uint32
}

func (a AdapterInfo) TypeName() string {
	switch a.Type {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "other"
	}
}

func (a AdapterInfo) String() string {
	return fmt.Sprintf("%s (%s, Vulkan %d.%d.%d)", a.Name, a.TypeName(),
		vk.Version(a.APIVersion).Major(), vk.Version(a.APIVersion).Minor(), vk.Version(a.APIVersion).Patch())
}

type queueFamily struct {
	graphics bool
	present  bool
}

type queueFamilyInfo struct {
	graphicsFamilyIndex uint32
	presentFamilyIndex  uint32
}

// pickQueueFamilies prefers one family that can both draw and present,
// otherwise the first family of each kind.
func pickQueueFamilies(families []queueFamily) (queueFamilyInfo, bool) {
	for i, f := range families {
		if f.graphics && f.present {
			return queueFamilyInfo{graphicsFamilyIndex: uint32(i), presentFamilyIndex: uint32(i)}, true
		}
	}
	graphics, present := -1, -1
	for i, f := range families {
		if f.graphics && graphics < 0 {
			graphics = i
		}
		if f.present && present < 0 {
			present = i
		}
	}
	if graphics < 0 || present < 0 {
		return queueFamilyInfo{}, false
	}
	return queueFamilyInfo{graphicsFamilyIndex: uint32(graphics), presentFamilyIndex: uint32(present)}, true
}

type adapterCandidate struct {
	info       AdapterInfo
	queues     queueFamilyInfo
	queuesOK   bool
	extensions []string
	formats    int
	modes      int
}

var minimumAPIVersion = uint32(vk.MakeVersion(1, 1, 0))

func (c adapterCandidate) meetsRequirements() bool {
	return c.queuesOK &&
		slices.Contains(c.extensions, vk.KhrSwapchainExtensionName) &&
		c.formats > 0 && c.modes > 0 &&
		c.info.APIVersion >= minimumAPIVersion
}

// typeRank orders adapter types for a preference. Lower is better; software
// adapters are never ranked.
func typeRank(t vk.PhysicalDeviceType, pref PowerPreference) (int, bool) {
	var order []vk.PhysicalDeviceType
	if pref == PowerPreferenceHighPerformance {
		order = []vk.PhysicalDeviceType{vk.PhysicalDeviceTypeDiscreteGpu, vk.PhysicalDeviceTypeIntegratedGpu, vk.PhysicalDeviceTypeVirtualGpu}
	} else {
		order = []vk.PhysicalDeviceType{vk.PhysicalDeviceTypeIntegratedGpu, vk.PhysicalDeviceTypeDiscreteGpu, vk.PhysicalDeviceTypeVirtualGpu}
	}
	if t == vk.PhysicalDeviceTypeCpu {
		return 0, false
	}
	for i, o := range order {
		if o == t {
			return i, true
		}
	}
	return len(order), true
}

// selectAdapter returns the index of the best suitable candidate, or -1.
// Ties keep enumeration order.
func selectAdapter(candidates []adapterCandidate, pref PowerPreference) int {
	best, bestRank := -1, 0
	for i, c := range candidates {
		if !c.meetsRequirements() {
			continue
		}
		rank, ok := typeRank(c.info.Type, pref)
		if !ok {
			continue
		}
		if best < 0 || rank < bestRank {
			best, bestRank = i, rank
		}
	}
	return best
}

func DeviceCreate(context *GraphicsContext, pref PowerPreference) error {
	if err := SelectPhysicalDevice(context, pref); err != nil {
		return err
	}

	core.LogDebug("Creating logical device...")

	// Do not create additional queues for shared indices.
	indices := []uint32{context.Device.GraphicsQueueIndex}
	if context.Device.PresentQueueIndex != context.Device.GraphicsQueueIndex {
		indices = append(indices, context.Device.PresentQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	available, err := deviceExtensionNames(context.Device.PhysicalDevice)
	if err != nil {
		return err
	}
	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if slices.Contains(available, portabilitySubsetExtensionName) {
		core.LogDebug("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensionNames = append(extensionNames, portabilitySubsetExtensionName)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		return context.resultError("vkCreateDevice", res)
	}
	context.Device.LogicalDevice = device
	core.LogDebug("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, context.Device.GraphicsQueueIndex, 0, &graphicsQueue)
	vk.GetDeviceQueue(device, context.Device.PresentQueueIndex, 0, &presentQueue)
	context.Device.GraphicsQueue = graphicsQueue
	context.Device.PresentQueue = presentQueue

	// Command pool for the graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return context.resultError("vkCreateCommandPool", res)
	}
	context.Device.GraphicsCommandPool = pool
	core.LogDebug("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *GraphicsContext) {
	if context.Device == nil || context.Device.LogicalDevice == nil {
		return
	}
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil

	core.LogDebug("Destroying command pools...")
	vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)

	core.LogDebug("Destroying logical device...")
	vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
	context.Device.LogicalDevice = nil

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	var supportInfo VulkanSwapchainSupportInfo

	// Surface capabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return supportInfo, fmt.Errorf("vkGetPhysicalDeviceSurfaceCapabilitiesKHR failed with %s", VulkanResultString(res, true))
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return supportInfo, fmt.Errorf("vkGetPhysicalDeviceSurfaceFormatsKHR failed with %s", VulkanResultString(res, true))
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, formats); res != vk.Success {
			return supportInfo, fmt.Errorf("vkGetPhysicalDeviceSurfaceFormatsKHR failed with %s", VulkanResultString(res, true))
		}
		for i := range formats[:formatCount] {
			formats[i].Deref()
			supportInfo.Formats = append(supportInfo.Formats, SurfaceFormat{Format: formats[i].Format, ColorSpace: formats[i].ColorSpace})
		}
	}

	// Present modes
	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return supportInfo, fmt.Errorf("vkGetPhysicalDeviceSurfacePresentModesKHR failed with %s", VulkanResultString(res, true))
	}
	if presentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return supportInfo, fmt.Errorf("vkGetPhysicalDeviceSurfacePresentModesKHR failed with %s", VulkanResultString(res, true))
		}
		supportInfo.PresentModes = supportInfo.PresentModes[:presentModeCount]
	}
	return supportInfo, nil
}

func SelectPhysicalDevice(context *GraphicsContext, pref PowerPreference) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return context.resultError("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return core.ErrNoAdapter
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return context.resultError("vkEnumeratePhysicalDevices", res)
	}

	candidates := make([]adapterCandidate, len(physicalDevices))
	supports := make([]VulkanSwapchainSupportInfo, len(physicalDevices))
	for i, pd := range physicalDevices {
		candidate, support, err := inspectAdapter(pd, context.Surface)
		if err != nil {
			core.LogWarn("Skipping device %d: %s", i, err)
			continue
		}
		candidates[i] = candidate
		supports[i] = support
		core.LogDebug("Device %d: %s graphics=%d present=%d suitable=%t",
			i, candidate.info, candidate.queues.graphicsFamilyIndex, candidate.queues.presentFamilyIndex, candidate.meetsRequirements())
	}

	selected := selectAdapter(candidates, pref)
	if selected < 0 {
		core.LogError("No physical devices were found which meet the requirements.")
		return core.ErrNoAdapter
	}

	context.Device.PhysicalDevice = physicalDevices[selected]
	context.Device.Info = candidates[selected].info
	context.Device.GraphicsQueueIndex = candidates[selected].queues.graphicsFamilyIndex
	context.Device.PresentQueueIndex = candidates[selected].queues.presentFamilyIndex
	context.Device.SwapchainSupport = supports[selected]

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(context.Device.PhysicalDevice, &memory)
	memory.Deref()
	context.Device.Memory = memory

	info := context.Device.Info
	core.LogInfo("Selected device: '%s' (%s, preference %s).", info.Name, info.TypeName(), pref)
	core.LogDebug(
		"GPU Driver version: %d.%d.%d",
		vk.Version(info.DriverVersion).Major(),
		vk.Version(info.DriverVersion).Minor(),
		vk.Version(info.DriverVersion).Patch(),
	)

	// Memory information
	for j := 0; j < int(memory.MemoryHeapCount); j++ {
		memory.MemoryHeaps[j].Deref()
		memorySizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if memory.MemoryHeaps[j].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogDebug("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogDebug("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
	return nil
}

func inspectAdapter(device vk.PhysicalDevice, surface vk.Surface) (adapterCandidate, VulkanSwapchainSupportInfo, error) {
	var candidate adapterCandidate

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()
	candidate.info = AdapterInfo{
		Name:          vk.ToString(properties.DeviceName[:]),
		Type:          properties.DeviceType,
		VendorID:      properties.VendorID,
		DeviceID:      properties.DeviceID,
		DriverVersion: properties.DriverVersion,
		APIVersion:    properties.ApiVersion,
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	families := make([]queueFamily, queueFamilyCount)
	for i := range families {
		queueFamilies[i].Deref()
		families[i].graphics = queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return candidate, VulkanSwapchainSupportInfo{}, fmt.Errorf("vkGetPhysicalDeviceSurfaceSupportKHR failed with %s", VulkanResultString(res, true))
		}
		families[i].present = supportsPresent == vk.True
	}
	candidate.queues, candidate.queuesOK = pickQueueFamilies(families)

	extensions, err := deviceExtensionNames(device)
	if err != nil {
		return candidate, VulkanSwapchainSupportInfo{}, err
	}
	candidate.extensions = extensions

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil {
		return candidate, support, err
	}
	candidate.formats = len(support.Formats)
	candidate.modes = len(support.PresentModes)
	return candidate, support, nil
}

func deviceExtensionNames(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateDeviceExtensionProperties failed with %s", VulkanResultString(res, true))
	}
	if count == 0 {
		return nil, nil
	}
	properties := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, properties); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateDeviceExtensionProperties failed with %s", VulkanResultString(res, true))
	}
	names := make([]string, 0, count)
	for i := range properties[:count] {
		properties[i].Deref()
		names = append(names, vk.ToString(properties[i].ExtensionName[:]))
	}
	return names, nil
}

// findMemoryIndex returns the first memory type allowed by typeFilter that
// has all the requested property flags.
func findMemoryIndex(memory vk.PhysicalDeviceMemoryProperties, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return 0, core.ErrNoMemoryType
}
