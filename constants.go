// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

const (
	// MaxCommandSize is the maximum size of a marshalled command packet.
	MaxCommandSize = 4096

	// MaxResponseSize is the maximum size of a response packet accepted
	// from a device.
	MaxResponseSize = 4096

	// MaxDigestBuffer is the maximum size of the data payload of a
	// TPM2B_MAX_BUFFER, used by the hash and HMAC sequence commands.
	MaxDigestBuffer = 1024
)

const (
	CommandFirst CommandCode = 0x0000011f

	CommandNVUndefineSpaceSpecial  CommandCode = 0x0000011f
	CommandEvictControl            CommandCode = 0x00000120
	CommandHierarchyControl        CommandCode = 0x00000121
	CommandNVUndefineSpace         CommandCode = 0x00000122
	CommandClear                   CommandCode = 0x00000126
	CommandClearControl            CommandCode = 0x00000127
	CommandHierarchyChangeAuth     CommandCode = 0x00000129
	CommandNVDefineSpace           CommandCode = 0x0000012a
	CommandCreatePrimary           CommandCode = 0x00000131
	CommandIncrementalSelfTest     CommandCode = 0x00000134
	CommandSelfTest                CommandCode = 0x00000143
	CommandStartup                 CommandCode = 0x00000144
	CommandShutdown                CommandCode = 0x00000145
	CommandStirRandom              CommandCode = 0x00000146
	CommandActivateCredential      CommandCode = 0x00000147
	CommandCertify                 CommandCode = 0x00000148
	CommandPolicyNV                CommandCode = 0x00000149
	CommandCertifyCreation         CommandCode = 0x0000014a
	CommandNVRead                  CommandCode = 0x0000014e
	CommandPolicySecret            CommandCode = 0x00000151
	CommandCreate                  CommandCode = 0x00000153
	CommandECDHZGen                CommandCode = 0x00000154
	CommandHMAC                    CommandCode = 0x00000155
	CommandImport                  CommandCode = 0x00000156
	CommandLoad                    CommandCode = 0x00000157
	CommandQuote                   CommandCode = 0x00000158
	CommandRSADecrypt              CommandCode = 0x00000159
	CommandHMACStart               CommandCode = 0x0000015b
	CommandSequenceUpdate          CommandCode = 0x0000015c
	CommandSign                    CommandCode = 0x0000015d
	CommandUnseal                  CommandCode = 0x0000015e
	CommandPolicySigned            CommandCode = 0x00000160
	CommandContextLoad             CommandCode = 0x00000161
	CommandContextSave             CommandCode = 0x00000162
	CommandECDHKeyGen              CommandCode = 0x00000163
	CommandFlushContext            CommandCode = 0x00000165
	CommandLoadExternal            CommandCode = 0x00000167
	CommandMakeCredential          CommandCode = 0x00000168
	CommandNVReadPublic            CommandCode = 0x00000169
	CommandPolicyAuthValue         CommandCode = 0x0000016b
	CommandPolicyCommandCode       CommandCode = 0x0000016c
	CommandPolicyOR                CommandCode = 0x00000171
	CommandReadPublic              CommandCode = 0x00000173
	CommandRSAEncrypt              CommandCode = 0x00000174
	CommandStartAuthSession        CommandCode = 0x00000176
	CommandVerifySignature         CommandCode = 0x00000177
	CommandECCParameters           CommandCode = 0x00000178
	CommandGetCapability           CommandCode = 0x0000017a
	CommandGetRandom               CommandCode = 0x0000017b
	CommandGetTestResult           CommandCode = 0x0000017c
	CommandHash                    CommandCode = 0x0000017d
	CommandPCRRead                 CommandCode = 0x0000017e
	CommandPolicyPCR               CommandCode = 0x0000017f
	CommandReadClock               CommandCode = 0x00000181
	CommandPCRExtend               CommandCode = 0x00000182
	CommandNVCertify               CommandCode = 0x00000184
	CommandEventSequenceComplete   CommandCode = 0x00000185
	CommandHashSequenceStart       CommandCode = 0x00000186
	CommandPolicyDuplicationSelect CommandCode = 0x00000188
	CommandPolicyGetDigest         CommandCode = 0x00000189
	CommandPolicyPassword          CommandCode = 0x0000018c
	CommandCreateLoaded            CommandCode = 0x00000191
	CommandEncryptDecrypt2         CommandCode = 0x00000193

	CommandLast CommandCode = 0x00000193
)

// CommandSequenceComplete completes a hash or HMAC sequence started with
// CommandHashSequenceStart or CommandHMACStart.
const CommandSequenceComplete CommandCode = 0x0000013e

const (
	TagRspCommand StructTag = 0x00c4

	TagNoSessions StructTag = 0x8001
	TagSessions   StructTag = 0x8002

	TagAttestCertify  StructTag = 0x8017
	TagAttestQuote    StructTag = 0x8018
	TagCreation       StructTag = 0x8021
	TagVerified       StructTag = 0x8022
	TagAuthSecret     StructTag = 0x8023
	TagHashcheck      StructTag = 0x8024
	TagAuthSigned     StructTag = 0x8025
)

const (
	StartupClear StartupType = 0x0000
	StartupState StartupType = 0x0001
)

const (
	SessionTypeHMAC   SessionType = 0x00
	SessionTypePolicy SessionType = 0x01
	SessionTypeTrial  SessionType = 0x03
)

const (
	HandleTypePCR           HandleType = 0x00
	HandleTypeNVIndex       HandleType = 0x01
	HandleTypeHMACSession   HandleType = 0x02
	HandleTypePolicySession HandleType = 0x03
	HandleTypePermanent     HandleType = 0x40
	HandleTypeTransient     HandleType = 0x80
	HandleTypePersistent    HandleType = 0x81
)

const (
	HandleOwner       Handle = 0x40000001
	HandleNull        Handle = 0x40000007
	HandleUnassigned  Handle = 0x40000008
	HandlePW          Handle = 0x40000009
	HandleLockout     Handle = 0x4000000a
	HandleEndorsement Handle = 0x4000000b
	HandlePlatform    Handle = 0x4000000c
)

const (
	AlgorithmRSA       AlgorithmId = 0x0001
	AlgorithmSHA1      AlgorithmId = 0x0004
	AlgorithmHMAC      AlgorithmId = 0x0005
	AlgorithmAES       AlgorithmId = 0x0006
	AlgorithmKeyedHash AlgorithmId = 0x0008
	AlgorithmXOR       AlgorithmId = 0x000a
	AlgorithmSHA256    AlgorithmId = 0x000b
	AlgorithmSHA384    AlgorithmId = 0x000c
	AlgorithmSHA512    AlgorithmId = 0x000d
	AlgorithmNull      AlgorithmId = 0x0010
	AlgorithmRSASSA    AlgorithmId = 0x0014
	AlgorithmRSAPSS    AlgorithmId = 0x0016
	AlgorithmOAEP      AlgorithmId = 0x0017
	AlgorithmECDSA     AlgorithmId = 0x0018
	AlgorithmECC       AlgorithmId = 0x0023
	AlgorithmSymCipher AlgorithmId = 0x0025
	AlgorithmCFB       AlgorithmId = 0x0043

	HashAlgorithmNull   HashAlgorithmId = HashAlgorithmId(AlgorithmNull)
	HashAlgorithmSHA1   HashAlgorithmId = HashAlgorithmId(AlgorithmSHA1)
	HashAlgorithmSHA256 HashAlgorithmId = HashAlgorithmId(AlgorithmSHA256)
	HashAlgorithmSHA384 HashAlgorithmId = HashAlgorithmId(AlgorithmSHA384)
	HashAlgorithmSHA512 HashAlgorithmId = HashAlgorithmId(AlgorithmSHA512)
)

const (
	CapabilityAlgs          Capability = 0
	CapabilityHandles       Capability = 1
	CapabilityCommands      Capability = 2
	CapabilityPCRs          Capability = 5
	CapabilityTPMProperties Capability = 6
)

const (
	// propertyGroupFixed is the base of the fixed property group
	// (PT_GROUP * 1).
	propertyGroupFixed Property = 0x100

	PropertyFamilyIndicator Property = propertyGroupFixed + 0
	PropertyManufacturer    Property = propertyGroupFixed + 5
	PropertyInputBuffer     Property = propertyGroupFixed + 13
	PropertyMaxDigest       Property = propertyGroupFixed + 28

	// propertyGroupVar is the base of the variable property group
	// (PT_GROUP * 2).
	propertyGroupVar Property = 0x200

	PropertyPermanent    Property = propertyGroupVar + 0
	PropertyStartupClear Property = propertyGroupVar + 1
)
